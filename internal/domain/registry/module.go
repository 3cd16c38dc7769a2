package registry

import "go.uber.org/fx"

// Module wires a process-wide Registry into the fx graph.
var Module = fx.Module("registry",
	fx.Provide(New),
)
