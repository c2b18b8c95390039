package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/botica-labs/botica/internal/entity"
	"github.com/botica-labs/botica/internal/messaging"
	"github.com/botica-labs/botica/internal/repository/catalog"
	repo "github.com/botica-labs/botica/internal/repository/order"
	"github.com/botica-labs/botica/pkg/errorbank"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeCatalog struct {
	products map[int64]*entity.Product
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*entity.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	clone := *product
	return &clone, nil
}

type fakeDirectory struct {
	customers map[int64]bool
	suppliers map[int64]bool
	users     map[int64]bool
}

func (f *fakeDirectory) CustomerExists(_ context.Context, id int64) (bool, error) {
	return f.customers[id], nil
}

func (f *fakeDirectory) SupplierExists(_ context.Context, id int64) (bool, error) {
	return f.suppliers[id], nil
}

func (f *fakeDirectory) UserExists(_ context.Context, id int64) (bool, error) {
	return f.users[id], nil
}

// fakeStore mirrors the repository's transactional semantics in memory:
// stock deltas are checked before anything is applied, so a failing line
// leaves no partial state behind.
type fakeStore struct {
	catalog   *fakeCatalog
	orders    map[int64]*entity.Order
	nextID    int64
	createErr error
}

func newFakeStore(c *fakeCatalog) *fakeStore {
	return &fakeStore{catalog: c, orders: make(map[int64]*entity.Order)}
}

func (f *fakeStore) Create(_ context.Context, order *entity.Order) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, line := range order.Lines {
		product, ok := f.catalog.products[line.ProductID]
		if !ok {
			return catalog.ErrNotFound
		}
		if product.Stock+order.StockDelta(line.Quantity) < 0 {
			return catalog.ErrInsufficientStock
		}
	}
	for _, line := range order.Lines {
		f.catalog.products[line.ProductID].Stock += order.StockDelta(line.Quantity)
	}
	f.nextID++
	order.ID = f.nextID
	for i, line := range order.Lines {
		line.ID = int64(i + 1)
		line.OrderID = order.ID
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*entity.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return order, nil
}

func (f *fakeStore) List(_ context.Context) ([]*entity.Order, error) {
	out := make([]*entity.Order, 0, len(f.orders))
	for _, order := range f.orders {
		out = append(out, order)
	}
	return out, nil
}

func (f *fakeStore) ListByDateRange(_ context.Context, start, end time.Time) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, order := range f.orders {
		if !order.OccurredAt.Before(start) && !order.OccurredAt.After(end) {
			out = append(out, order)
		}
	}
	return out, nil
}

func (f *fakeStore) ListByCounterparty(_ context.Context, id int64) ([]*entity.Order, error) {
	var out []*entity.Order
	for _, order := range f.orders {
		cp := order.CounterpartyID()
		if cp != nil && *cp == id {
			out = append(out, order)
		}
	}
	return out, nil
}

func (f *fakeStore) Cancel(_ context.Context, id int64) (*entity.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if order.State == entity.StateCancelled {
		return nil, repo.ErrAlreadyCancelled
	}
	for _, line := range order.Lines {
		if f.catalog.products[line.ProductID].Stock-order.StockDelta(line.Quantity) < 0 {
			return nil, catalog.ErrInsufficientStock
		}
	}
	for _, line := range order.Lines {
		f.catalog.products[line.ProductID].Stock -= order.StockDelta(line.Quantity)
	}
	order.State = entity.StateCancelled
	return order, nil
}

func (f *fakeStore) UpdateState(_ context.Context, id int64, from, to entity.State) error {
	order, ok := f.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	if order.State != from {
		return repo.ErrStateConflict
	}
	order.State = to
	return nil
}

type fakePublisher struct {
	events [][]byte
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, msg messaging.Message) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, msg.Value)
	return nil
}

func (f *fakePublisher) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakePublisher) Topic() string { return "orders.audit" }

type fixture struct {
	svc       *Service
	store     *fakeStore
	catalog   *fakeCatalog
	publisher *fakePublisher
}

func newFixture() *fixture {
	cat := &fakeCatalog{products: map[int64]*entity.Product{
		1: {ID: 1, Name: "Paracetamol 500mg", Price: dec("15.50"), Stock: 10, Active: true},
		2: {ID: 2, Name: "Ibuprofen 400mg", Price: dec("19.50"), Stock: 5, Active: true},
	}}
	dir := &fakeDirectory{
		customers: map[int64]bool{10: true},
		suppliers: map[int64]bool{20: true},
		users:     map[int64]bool{1: true},
	}
	store := newFakeStore(cat)
	publisher := &fakePublisher{}
	svc := &Service{
		store:     store,
		validator: NewValidator(cat, dir),
		cacheTTL:  time.Minute,
		logger:    zap.NewNop(),
		publisher: publisher,
		messaging: messagingConfig{enabled: true, topic: "orders.audit"},
		now:       func() time.Time { return time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC) },
	}
	return &fixture{svc: svc, store: store, catalog: cat, publisher: publisher}
}

func saleDraft(lines ...*entity.OrderLine) *entity.Order {
	customerID := int64(10)
	return &entity.Order{
		Kind:          entity.KindSale,
		CustomerID:    &customerID,
		UserID:        1,
		PaymentMethod: entity.PaymentCash,
		Lines:         lines,
	}
}

func purchaseDraft(lines ...*entity.OrderLine) *entity.Order {
	supplierID := int64(20)
	return &entity.Order{
		Kind:       entity.KindPurchase,
		SupplierID: &supplierID,
		UserID:     1,
		Lines:      lines,
	}
}

func TestCreateSaleTotals(t *testing.T) {
	f := newFixture()

	draft := saleDraft(
		&entity.OrderLine{ProductID: 1, Quantity: 3, UnitPrice: dec("15.50")},
		&entity.OrderLine{ProductID: 2, Quantity: 2, UnitPrice: dec("19.50")},
	)
	draft.Discount = dec("5.00")

	require.NoError(t, f.svc.Create(context.Background(), draft))

	assert.True(t, draft.Subtotal.Equal(dec("85.50")), "subtotal %s", draft.Subtotal)
	assert.True(t, draft.Tax.Equal(dec("12.88")), "tax %s", draft.Tax)
	assert.True(t, draft.Total.Equal(dec("93.38")), "total %s", draft.Total)
	assert.Equal(t, entity.StateCompleted, draft.State)
	assert.Equal(t, "Paracetamol 500mg", draft.Lines[0].ProductName)
	assert.False(t, draft.OccurredAt.IsZero())

	// Stock: 10-3 and 5-2.
	assert.Equal(t, int64(7), f.catalog.products[1].Stock)
	assert.Equal(t, int64(3), f.catalog.products[2].Stock)
}

func TestCreatePurchaseTotalsAndStock(t *testing.T) {
	f := newFixture()
	f.catalog.products[1].Stock = 10

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 50, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Create(context.Background(), draft))

	assert.True(t, draft.Subtotal.Equal(dec("500.00")), "subtotal %s", draft.Subtotal)
	assert.True(t, draft.Tax.Equal(dec("80.00")), "tax %s", draft.Tax)
	assert.True(t, draft.Total.Equal(dec("580.00")), "total %s", draft.Total)
	assert.Equal(t, entity.StatePending, draft.State)
	assert.True(t, draft.Discount.IsZero())
	assert.Equal(t, int64(60), f.catalog.products[1].Stock)
}

func TestCreateTotalInvariant(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 2, UnitPrice: dec("9.99")})
	draft.Discount = dec("1.50")
	require.NoError(t, f.svc.Create(context.Background(), draft))

	base := draft.Subtotal.Sub(draft.Discount)
	diff := draft.Total.Sub(base.Add(draft.Tax)).Abs()
	assert.True(t, diff.LessThanOrEqual(dec("0.01")), "total drifted by %s", diff)

	sum := decimal.Zero
	for _, line := range draft.Lines {
		sum = sum.Add(line.Subtotal)
	}
	assert.True(t, draft.Subtotal.Equal(sum))
}

func TestCreateUnknownProduct(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 99999, Quantity: 1, UnitPrice: dec("1.00")})
	err := f.svc.Create(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
	assert.Empty(t, f.store.orders, "no header may be persisted")
}

func TestCreateInsufficientStock(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 2, Quantity: 6, UnitPrice: dec("19.50")})
	err := f.svc.Create(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindInsufficientStock, errorbank.From(err).Kind())
	assert.Equal(t, int64(5), f.catalog.products[2].Stock, "stock must be untouched")
	assert.Empty(t, f.store.orders)
}

func TestCreateInsufficientStockAcrossLines(t *testing.T) {
	f := newFixture()

	// Two lines for the same product whose combined quantity exceeds stock.
	draft := saleDraft(
		&entity.OrderLine{ProductID: 2, Quantity: 3, UnitPrice: dec("19.50")},
		&entity.OrderLine{ProductID: 2, Quantity: 3, UnitPrice: dec("19.50")},
	)
	err := f.svc.Create(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindInsufficientStock, errorbank.From(err).Kind())
}

func TestCreateAtomicityOnBadLine(t *testing.T) {
	f := newFixture()

	draft := saleDraft(
		&entity.OrderLine{ProductID: 1, Quantity: 2, UnitPrice: dec("15.50")},
		&entity.OrderLine{ProductID: 2, Quantity: 0, UnitPrice: dec("19.50")},
	)
	err := f.svc.Create(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	assert.Equal(t, int64(10), f.catalog.products[1].Stock, "no stock change may survive")
	assert.Empty(t, f.store.orders)
}

func TestCreateRaceLostAtCommit(t *testing.T) {
	f := newFixture()
	// Validation sees enough stock, but the unit of work reports the
	// conditional decrement failed: another sale got there first.
	f.store.createErr = catalog.ErrInsufficientStock

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	err := f.svc.Create(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindInsufficientStock, errorbank.From(err).Kind())
}

func TestCreatePersistenceFailure(t *testing.T) {
	f := newFixture()
	f.store.createErr = errors.New("connection reset")

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	err := f.svc.Create(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindInternal, errorbank.From(err).Kind())
}

func TestCreateValidationOrder(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name string
		mut  func(o *entity.Order)
		kind errorbank.Kind
	}{
		{"unknown customer", func(o *entity.Order) { id := int64(404); o.CustomerID = &id }, errorbank.KindNotFound},
		{"missing operator", func(o *entity.Order) { o.UserID = 0 }, errorbank.KindBadRequest},
		{"unknown operator", func(o *entity.Order) { o.UserID = 404 }, errorbank.KindNotFound},
		{"no lines", func(o *entity.Order) { o.Lines = nil }, errorbank.KindBadRequest},
		{"bad payment method", func(o *entity.Order) { o.PaymentMethod = "barter" }, errorbank.KindBadRequest},
		{"negative discount", func(o *entity.Order) { o.Discount = dec("-1") }, errorbank.KindUnprocessableEntity},
		{"discount above subtotal", func(o *entity.Order) { o.Discount = dec("1000") }, errorbank.KindUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
			tt.mut(draft)
			err := f.svc.Create(context.Background(), draft)
			require.Error(t, err)
			assert.Equal(t, tt.kind, errorbank.From(err).Kind())
			assert.Empty(t, f.store.orders)
		})
	}
}

func TestCreatePurchaseRequiresSupplier(t *testing.T) {
	f := newFixture()

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("10.00")})
	draft.SupplierID = nil
	err := f.svc.Create(context.Background(), draft)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	unknown := int64(404)
	draft = purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("10.00")})
	draft.SupplierID = &unknown
	err = f.svc.Create(context.Background(), draft)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestCreatePurchaseRejectsCancelledDraft(t *testing.T) {
	f := newFixture()

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 5, UnitPrice: dec("10.00")})
	draft.State = entity.StateCancelled
	err := f.svc.Create(context.Background(), draft)

	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	assert.Equal(t, int64(10), f.catalog.products[1].Stock, "stock must be untouched")
	assert.Empty(t, f.store.orders)
}

func TestCreateAnonymousSaleAllowed(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	draft.CustomerID = nil
	require.NoError(t, f.svc.Create(context.Background(), draft))
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 3, UnitPrice: dec("15.50")})
	require.NoError(t, f.svc.Create(context.Background(), draft))
	require.Equal(t, int64(7), f.catalog.products[1].Stock)

	cancelled, err := f.svc.Cancel(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCancelled, cancelled.State)
	assert.Equal(t, int64(10), f.catalog.products[1].Stock, "stock restored to pre-create value")
}

func TestCancelPurchaseReversesIncrement(t *testing.T) {
	f := newFixture()

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 50, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Create(context.Background(), draft))
	require.Equal(t, int64(60), f.catalog.products[1].Stock)

	_, err := f.svc.Cancel(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), f.catalog.products[1].Stock)
}

func TestCancelTwiceConflicts(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	require.NoError(t, f.svc.Create(context.Background(), draft))

	_, err := f.svc.Cancel(context.Background(), draft.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), draft.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
	assert.Equal(t, int64(10), f.catalog.products[1].Stock, "second cancel must not touch stock")
}

func TestCancelMissingOrder(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Cancel(context.Background(), 12345)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestCancelPurchaseWithConsumedStock(t *testing.T) {
	f := newFixture()

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 50, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Create(context.Background(), draft))

	// The received units were sold on; reversal would drive stock negative.
	f.catalog.products[1].Stock = 5

	_, err := f.svc.Cancel(context.Background(), draft.ID)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestUpdateStatePendingToReceived(t *testing.T) {
	f := newFixture()

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 10, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Create(context.Background(), draft))

	updated, err := f.svc.UpdateState(context.Background(), draft.ID, entity.StateReceived)
	require.NoError(t, err)
	assert.Equal(t, entity.StateReceived, updated.State)
}

func TestUpdateStateTransitionTable(t *testing.T) {
	f := newFixture()

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 10, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Create(context.Background(), draft))

	_, err := f.svc.UpdateState(context.Background(), draft.ID, entity.StateReceived)
	require.NoError(t, err)

	// Received is terminal for direct state updates.
	_, err = f.svc.UpdateState(context.Background(), draft.ID, entity.StatePending)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
}

func TestUpdateStateRejectsCancellation(t *testing.T) {
	f := newFixture()

	draft := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 10, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Create(context.Background(), draft))

	_, err := f.svc.UpdateState(context.Background(), draft.ID, entity.StateCancelled)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindConflict, errorbank.From(err).Kind())
	assert.Equal(t, int64(20), f.catalog.products[1].Stock, "stock untouched")
}

func TestUpdateStateRejectsSales(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	require.NoError(t, f.svc.Create(context.Background(), draft))

	_, err := f.svc.UpdateState(context.Background(), draft.ID, entity.StateReceived)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestUpdateStateUnknownState(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdateState(context.Background(), 1, "shipped")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
}

func TestAuditEventsPublished(t *testing.T) {
	f := newFixture()

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	require.NoError(t, f.svc.Create(context.Background(), draft))
	_, err := f.svc.Cancel(context.Background(), draft.ID)
	require.NoError(t, err)

	require.Len(t, f.publisher.events, 2)

	var created AuditEvent
	require.NoError(t, json.Unmarshal(f.publisher.events[0], &created))
	assert.Equal(t, EventOrderCreated, created.Type)
	assert.Equal(t, draft.ID, created.OrderID)
	assert.NotEmpty(t, created.Summary)

	var cancelled AuditEvent
	require.NoError(t, json.Unmarshal(f.publisher.events[1], &cancelled))
	assert.Equal(t, EventOrderCancelled, cancelled.Type)
}

func TestAuditFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker down")

	draft := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	require.NoError(t, f.svc.Create(context.Background(), draft), "publish failures must never fail the business operation")
	assert.Contains(t, f.store.orders, draft.ID)
}

func TestGetAndLists(t *testing.T) {
	f := newFixture()

	sale := saleDraft(&entity.OrderLine{ProductID: 1, Quantity: 1, UnitPrice: dec("15.50")})
	require.NoError(t, f.svc.Create(context.Background(), sale))
	purchase := purchaseDraft(&entity.OrderLine{ProductID: 1, Quantity: 5, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Create(context.Background(), purchase))

	got, err := f.svc.Get(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.ID, got.ID)

	_, err = f.svc.Get(context.Background(), 999)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())

	all, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	day := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	inRange, err := f.svc.ListByDateRange(context.Background(), day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	_, err = f.svc.ListByDateRange(context.Background(), day.Add(time.Hour), day)
	require.Error(t, err)
	assert.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	bySupplier, err := f.svc.ListByCounterparty(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, bySupplier, 1)
	assert.Equal(t, purchase.ID, bySupplier[0].ID)
}
