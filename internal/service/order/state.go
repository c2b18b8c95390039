package order

import "github.com/botica-labs/botica/internal/entity"

// purchaseTransitions is the explicit transition table for UpdateState on
// purchases, keyed by (current, requested). Cancellation is absent on
// purpose: it must go through Cancel so inventory is reversed. Received is
// terminal, as is cancelled.
var purchaseTransitions = map[entity.State]map[entity.State]bool{
	entity.StatePending: {
		entity.StatePending:  true, // idempotent no-op
		entity.StateReceived: true,
	},
	entity.StateReceived:  {},
	entity.StateCancelled: {},
}

func transitionAllowed(from, to entity.State) bool {
	return purchaseTransitions[from][to]
}
