package dispatcher

import "go.uber.org/fx"

// Module wires a process-wide Dispatcher into the fx graph.
var Module = fx.Module("dispatcher",
	fx.Provide(New),
)
