package maintenance

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// LinkStatePruner removes expired OAuth link states.
type LinkStatePruner interface {
	PruneExpiredLinkStates() (int64, error)
}

// OrphanSweeper removes queue entries whose song row is gone.
type OrphanSweeper interface {
	DeleteOrphans() (int64, error)
}

// Runner executes periodic cleanup jobs on a cron schedule. Each tick prunes
// expired Spotify link states and sweeps queue entries orphaned by song
// deletions.
type Runner struct {
	logger   *log.Logger
	schedule cron.Schedule
	pruner   LinkStatePruner
	sweeper  OrphanSweeper
	stopCh   chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

// NewRunner creates a Runner from a standard 5-field cron expression
// (minute, hour, day-of-month, month, day-of-week).
func NewRunner(expression string, pruner LinkStatePruner, sweeper OrphanSweeper, logger *log.Logger) (*Runner, error) {
	if logger == nil {
		logger = log.Default()
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", expression, err)
	}

	return &Runner{
		logger:   logger,
		schedule: schedule,
		pruner:   pruner,
		sweeper:  sweeper,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}, nil
}

// Start begins the schedule loop in a goroutine.
func (r *Runner) Start() {
	r.logger.Printf("Maintenance runner starting, next run at %s", r.schedule.Next(r.now()).Format(time.RFC3339))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runLoop()
	}()
}

// Stop signals the loop to exit and waits for it.
func (r *Runner) Stop() {
	close(r.stopCh)
	r.wg.Wait()
	r.logger.Println("Maintenance runner stopped")
}

func (r *Runner) runLoop() {
	for {
		next := r.schedule.Next(r.now())
		timer := time.NewTimer(next.Sub(r.now()))

		select {
		case <-timer.C:
			r.RunOnce()
		case <-r.stopCh:
			timer.Stop()
			return
		}
	}
}

// RunOnce executes every cleanup job immediately. Failures are logged and
// do not stop the remaining jobs.
func (r *Runner) RunOnce() {
	if r.pruner != nil {
		if n, err := r.pruner.PruneExpiredLinkStates(); err != nil {
			r.logger.Printf("Failed to prune expired link states: %v", err)
		} else if n > 0 {
			r.logger.Printf("Pruned %d expired link states", n)
		}
	}

	if r.sweeper != nil {
		if n, err := r.sweeper.DeleteOrphans(); err != nil {
			r.logger.Printf("Failed to sweep orphaned queue entries: %v", err)
		} else if n > 0 {
			r.logger.Printf("Swept %d orphaned queue entries", n)
		}
	}
}
