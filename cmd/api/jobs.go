package main

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// startJobs schedules the periodic housekeeping tasks and starts the
// scheduler. The caller stops it on shutdown.
func (app *application) startJobs() (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))

	_, err := scheduler.AddFunc(app.config.agents.evictSchedule, app.evictIdleAgents)
	if err != nil {
		return nil, fmt.Errorf("invalid agent eviction schedule %q: %w", app.config.agents.evictSchedule, err)
	}

	scheduler.Start()
	return scheduler, nil
}

// evictIdleAgents drops agents nobody has used for the configured idle
// timeout. Their owners get a fresh agent, seeded with stored history, on
// the next request.
func (app *application) evictIdleAgents() {
	evicted := app.agents.EvictIdle(app.config.agents.idleTimeout)
	for _, id := range evicted {
		app.refreshed.Delete(id)
	}

	if len(evicted) > 0 {
		app.logger.Info("evicted idle agents", "count", len(evicted), "remaining", app.agents.Len())
	}
}
