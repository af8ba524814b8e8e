package cron

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// Runner wraps robfig/cron so jobs receive the process base context. The
// components it triggers expose plain callable operations and carry no timers
// of their own.
type Runner struct {
	cron    *cron.Cron
	baseCtx context.Context
}

func New(baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Runner{
		cron:    cron.New(),
		baseCtx: baseCtx,
	}
}

// Add schedules job under the given cron spec (e.g. "@every 60s").
func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	log.Println("[cron] started")
	r.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	log.Println("[cron] stopped")
}
