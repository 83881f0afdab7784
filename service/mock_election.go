package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/votegraph/acceptance"
	"github.com/vocdoni/votegraph/address"
	"github.com/vocdoni/votegraph/ballot"
	"github.com/vocdoni/votegraph/config"
	"github.com/vocdoni/votegraph/electionconfig"
	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/util"
)

// DefaultMockElectionInterval and DefaultMockElectionJanitorEvery are §5's
// mock-election orchestration knobs: a serial loop with a 10s sleep between
// poll cycles and housekeeping every 10 iterations.
const (
	DefaultMockElectionInterval     = 10 * time.Second
	DefaultMockElectionJanitorEvery = 10
)

// MockElection drives the acceptance pipeline with synthetic voters: each
// iteration resolves one address to a blank ballot, fills it with random
// choices, and casts it, simulating the election the rest of the system
// exists to serve. It is a test/demo harness, not part of the voting
// protocol itself.
type MockElection struct {
	Pipeline       *acceptance.Pipeline
	ElectionConfig *electionconfig.ElectionConfig
	Config         config.ElectionConfig
	Addresses      []address.Address
	Interval       time.Duration
	JanitorEvery   int

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	iteration int
}

// NewMockElection returns a MockElection that cycles through addresses,
// casting one ballot per iteration against pipeline.
func NewMockElection(pipeline *acceptance.Pipeline, ec *electionconfig.ElectionConfig, cfg config.ElectionConfig, addresses []address.Address) *MockElection {
	return &MockElection{
		Pipeline:       pipeline,
		ElectionConfig: ec,
		Config:         cfg,
		Addresses:      addresses,
		Interval:       DefaultMockElectionInterval,
		JanitorEvery:   DefaultMockElectionJanitorEvery,
	}
}

// Start begins the serial poll loop. It returns an error if already running
// or if no addresses were configured.
func (me *MockElection) Start(ctx context.Context) error {
	me.mu.Lock()
	defer me.mu.Unlock()

	if me.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if len(me.Addresses) == 0 {
		return fmt.Errorf("mock election: no addresses configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	me.cancel = cancel

	me.wg.Add(1)
	go me.run(ctx)

	log.Infow("mock election started", "addresses", len(me.Addresses), "interval", me.Interval.String())
	return nil
}

// Stop halts the poll loop and waits for it to exit.
func (me *MockElection) Stop() {
	me.mu.Lock()
	cancel := me.cancel
	me.cancel = nil
	me.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	me.wg.Wait()
	log.Infow("mock election stopped")
}

func (me *MockElection) run(ctx context.Context) {
	defer me.wg.Done()

	for {
		me.iteration++
		if err := me.castOne(ctx); err != nil {
			log.Warnw("mock election: cast failed", "iteration", me.iteration, "err", err.Error())
		}

		if me.iteration%me.JanitorEvery == 0 {
			swept, err := me.Pipeline.Janitor(ctx)
			if err != nil {
				log.Warnw("mock election: janitor failed", "err", err.Error())
			} else if swept > 0 {
				log.Infow("mock election: janitor swept orphaned branches", "count", swept)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(me.Interval):
		}
	}
}

// castOne resolves the next address in round-robin order to a ballot,
// makes one random selection per contest, and casts it. Resolution and
// selection errors are non-fatal to the loop (§7: ResolutionError and
// SelectionError never corrupt state), only the failed voter's iteration
// is skipped.
func (me *MockElection) castOne(ctx context.Context) error {
	a := me.Addresses[(me.iteration-1)%len(me.Addresses)]
	if err := address.MapGGos(&a, me.ElectionConfig, me.Config); err != nil {
		return fmt.Errorf("resolve address: %w", err)
	}

	b, err := ballot.GenerateBlank(&a, me.ElectionConfig)
	if err != nil {
		return fmt.Errorf("generate ballot: %w", err)
	}

	for i := range b.Contests {
		c := &b.Contests[i]
		order := util.ShuffleIndices(len(c.Choices))
		picks := c.MaxSelections
		if picks > len(order) {
			picks = len(order)
		}
		for _, offset := range order[:picks] {
			if err := c.AddSelection(c.Choices[offset].Name, -1); err != nil {
				return fmt.Errorf("select contest %s: %w", c.Uid, err)
			}
		}
	}

	receipts, err := me.Pipeline.Accept(ctx, b.Contests)
	if err != nil {
		return fmt.Errorf("accept ballot: %w", err)
	}
	log.Debugw("mock election: cast ballot", "town", a.Town, "contests", len(receipts))
	return nil
}
