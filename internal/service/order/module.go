package order

import (
	"go.uber.org/fx"

	catalogrepo "github.com/botica-labs/botica/internal/repository/catalog"
	orderrepo "github.com/botica-labs/botica/internal/repository/order"
	partyrepo "github.com/botica-labs/botica/internal/repository/party"
)

// Module provides the order service and binds the repository ports.
var Module = fx.Options(
	fx.Provide(
		func(r *orderrepo.Repository) Store { return r },
		func(r *catalogrepo.Repository) Catalog { return r },
		func(r *partyrepo.Repository) Directory { return r },
		NewValidator,
		NewService,
	),
)
