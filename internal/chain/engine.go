package chain

import (
	"context"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

// Engine executes module callbacks and owns the event loop. The driver
// only sequences phases and interprets the statuses.
type Engine interface {
	SetModules(mods []module.Module) error
	Define(ctx context.Context) (status.Status, error)
	PreInitialize(ctx context.Context) (status.Status, error)
	Initialize(ctx context.Context) (status.Status, error)
	Analyze(ctx context.Context, numLoop int64, console bool) (status.Status, error)
	Finalize(ctx context.Context) (status.Status, error)
	SetDisplayPeriod(n int64)

	// ParallelModule returns the module with the given id in parallel
	// replica index. Replica 0 is the chain's own module list.
	ParallelModule(index int, id string) (module.Module, bool)
}
