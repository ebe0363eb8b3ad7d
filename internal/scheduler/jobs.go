package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/sandeepkv93/agenda/internal/log"
)

type JobsOptions struct {
	Location *time.Location
	// Autosave is the save interval. Zero disables autosave.
	Autosave time.Duration
	// Midnight runs when the civil day changes.
	Midnight func()
	Save     func() error
}

// Jobs runs the periodic housekeeping of a session on a cron clock.
type Jobs struct {
	cron *cron.Cron
	opts JobsOptions
}

func NewJobs(opts JobsOptions) (*Jobs, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	j := &Jobs{cron: cron.New(cron.WithLocation(loc)), opts: opts}

	if opts.Midnight != nil {
		if _, err := j.cron.AddFunc("0 0 * * *", j.midnight); err != nil {
			return nil, fmt.Errorf("add midnight job: %w", err)
		}
	}
	if opts.Autosave > 0 && opts.Save != nil {
		spec := fmt.Sprintf("@every %s", opts.Autosave.Round(time.Second))
		if _, err := j.cron.AddFunc(spec, j.autosave); err != nil {
			return nil, fmt.Errorf("add autosave job: %w", err)
		}
	}
	return j, nil
}

// Len returns the number of registered jobs.
func (j *Jobs) Len() int {
	return len(j.cron.Entries())
}

func (j *Jobs) Start() {
	j.cron.Start()
	log.Debug("jobs started", "jobs", j.Len())
}

// Stop halts the clock and waits for running jobs to return.
func (j *Jobs) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	log.Debug("jobs stopped")
}

// Run starts the jobs and blocks until ctx is done.
func (j *Jobs) Run(ctx context.Context) error {
	j.Start()
	<-ctx.Done()
	j.Stop()
	return nil
}

func (j *Jobs) midnight() {
	log.Debug("day changed")
	j.opts.Midnight()
}

func (j *Jobs) autosave() {
	if err := j.opts.Save(); err != nil {
		log.Error("autosave failed", err)
		return
	}
	log.Debug("autosave finished")
}
