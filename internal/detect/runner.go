package detect

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/raaihank/pii-sentinel/internal/entity"
	"github.com/raaihank/pii-sentinel/internal/logger"
)

// Runner fans detection out across all registered engines and
// gathers the raw candidates for the merger. It is the pipeline's
// synchronization point: Run returns only once every engine has
// finished, timed out, or failed, so downstream merging sees a
// complete input set regardless of engine completion order.
type Runner struct {
	detectors []Detector
	timeout   time.Duration
	log       *logger.Logger

	mu       sync.RWMutex
	degraded map[string]bool
}

// NewRunner creates a detection runner over the given engines
func NewRunner(detectors []Detector, timeout time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		detectors: detectors,
		timeout:   timeout,
		log:       log.WithComponent("detect"),
		degraded:  make(map[string]bool),
	}
}

// Run executes every detector concurrently with a per-detector
// timeout. A detector that errors or times out contributes zero
// entities and is marked degraded; it never aborts the run.
func (r *Runner) Run(ctx context.Context, text string, types []string) []entity.Entity {
	results := make([][]entity.Entity, len(r.detectors))

	var g errgroup.Group
	for i, d := range r.detectors {
		i, d := i, d
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			found, err := d.Detect(dctx, text, types)
			if err != nil {
				degraded := true
				if errors.Is(err, context.DeadlineExceeded) {
					r.log.Warn("detector timed out",
						zap.String("detector", d.Name()),
						zap.Duration("timeout", r.timeout))
				} else if errors.Is(err, context.Canceled) {
					degraded = false
				} else {
					r.log.Warn("detector failed",
						zap.String("detector", d.Name()),
						zap.Error(err))
				}
				r.setDegraded(d.Name(), degraded)
				return nil
			}

			r.setDegraded(d.Name(), false)
			results[i] = found
			return nil
		})
	}
	// Detector closures never return errors; failures degrade instead
	_ = g.Wait()

	var all []entity.Entity
	for _, found := range results {
		all = append(all, found...)
	}
	return all
}

func (r *Runner) setDegraded(name string, degraded bool) {
	r.mu.Lock()
	r.degraded[name] = degraded
	r.mu.Unlock()
}

// Status reports per-engine availability for status endpoints. An
// engine is up when it is registered, loaded, and not degraded.
func (r *Runner) Status() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]bool, len(r.detectors))
	for _, d := range r.detectors {
		up := !r.degraded[d.Name()]
		if ner, ok := d.(*NERDetector); ok {
			up = up && ner.Available()
		}
		status[d.Name()] = up
	}
	return status
}
