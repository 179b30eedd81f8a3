package system

import (
	"time"

	"github.com/l1jgo/fiberd/internal/core/ecs"
	coresys "github.com/l1jgo/fiberd/internal/core/system"
	"go.uber.org/zap"
)

// CleanupSystem flushes the deferred entity destruction queue at frame end.
// Destroy hooks cancel the fibers each entity owned; those fibers observe
// the cancellation on the next scheduler tick.
type CleanupSystem struct {
	world *ecs.World
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger) *CleanupSystem {
	return &CleanupSystem{world: world, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	if n := s.world.FlushDestroyQueue(); n > 0 {
		s.log.Debug("entities destroyed", zap.Int("count", n))
	}
}
