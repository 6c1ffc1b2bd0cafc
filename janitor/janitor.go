package janitor

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/crosstalk-chat/crosstalk/globals"
	"github.com/crosstalk-chat/crosstalk/store"
)

// Janitor periodically reclaims rooms that went idle without a tracked
// disconnect (process restarts of the grace timers, rooms created but never
// joined). It is a backstop independent of the presence manager's own
// long-grace reclamation.
type Janitor struct {
	store         *store.Store
	sweepSpec     string
	idleThreshold time.Duration
	runner        *cron.Cron
}

func New(st *store.Store, sweepSpec string, idleThreshold time.Duration) *Janitor {
	return &Janitor{
		store:         st,
		sweepSpec:     sweepSpec,
		idleThreshold: idleThreshold,
	}
}

// Start schedules the sweep on a cron runner and starts it.
func (j *Janitor) Start() error {
	j.runner = cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := j.runner.AddFunc(j.sweepSpec, j.Sweep); err != nil {
		return err
	}
	j.runner.Start()
	globals.AppLogger.Info("janitor started", "spec", j.sweepSpec, "idle_threshold", j.idleThreshold)
	return nil
}

func (j *Janitor) Stop() {
	if j.runner != nil {
		j.runner.Stop()
	}
}

// Sweep deletes every room that is both empty and idle beyond the threshold.
// The check runs atomically per room, so a join racing the sweep wins.
func (j *Janitor) Sweep() {
	for _, info := range j.store.ListRooms() {
		if j.store.DeleteRoomIfAbandoned(info.Code, j.idleThreshold) {
			globals.AppLogger.Info("swept abandoned room", "room", info.Code)
		}
	}
}
