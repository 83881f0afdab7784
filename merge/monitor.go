package merge

import (
	"context"
	"sync"
	"time"

	"github.com/vocdoni/votegraph/log"
)

// Monitor drives a Controller's Sweep on a schedule: a ticker for periodic
// sweeps plus an on-demand channel for an immediate one, mirroring the
// teacher's background-finalizer shape (ticker + on-demand channel +
// cancelable goroutine group) adapted to the merge domain.
type Monitor struct {
	ctrl       *Controller
	params     Params
	OndemandCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewMonitor returns a Monitor driving ctrl's Sweep with params on every
// tick and whenever OndemandCh receives a signal.
func NewMonitor(ctrl *Controller, params Params) *Monitor {
	return &Monitor{
		ctrl:       ctrl,
		params:     params,
		OndemandCh: make(chan struct{}, 10),
	}
}

// Start begins the monitor. If interval is 0, only on-demand sweeps run.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for {
			select {
			case <-m.OndemandCh:
				m.sweepOnce()
			case <-m.ctx.Done():
				return
			}
		}
	}()

	if interval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.sweepOnce()
				case <-m.ctx.Done():
					return
				}
			}
		}()
	}

	log.Infow("merge monitor started successfully")
}

func (m *Monitor) sweepOnce() {
	results, err := m.ctrl.Sweep(m.ctx, m.params)
	if err != nil {
		log.Errorw(err, "merge sweep encountered errors")
	}
	for _, r := range results {
		if r.Skipped {
			log.Debugw("merge sweep: uid below anonymity set, left outstanding", "uid", r.Uid)
			continue
		}
		log.Infow("merge sweep: merged branches into mainline", "uid", r.Uid, "count", len(r.Merged))
	}
}

// Close signals the monitor to stop and waits for its goroutines to exit,
// with a bounded wait so a caller never blocks forever on a stuck sweep.
func (m *Monitor) Close() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.cancel = nil

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Infow("merge monitor closed successfully")
	case <-time.After(5 * time.Second):
		log.Warnw("merge monitor goroutines did not exit cleanly")
	}
}
