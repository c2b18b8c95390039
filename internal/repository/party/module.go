package party

import "go.uber.org/fx"

// Module provides the party repository to Fx.
var Module = fx.Provide(NewRepository)
