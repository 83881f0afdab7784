package service

import (
	"context"
	"fmt"
	"time"

	"github.com/vocdoni/votegraph/log"
	"github.com/vocdoni/votegraph/merge"
)

// MergeMonitorService wraps a merge.Monitor with the cancel-guarded
// Start/Stop surface every service in this package exposes.
type MergeMonitorService struct {
	*merge.Monitor
	cancel context.CancelFunc
}

// NewMergeMonitor creates a new merge monitor service driving ctrl's Sweep
// with params.
func NewMergeMonitor(ctrl *merge.Controller, params merge.Params) *MergeMonitorService {
	return &MergeMonitorService{Monitor: merge.NewMonitor(ctrl, params)}
}

// Start begins the merge monitor service. interval is how often a sweep
// runs unprompted; a caller can additionally trigger one early by sending
// to Monitor.OndemandCh.
func (ms *MergeMonitorService) Start(ctx context.Context, interval time.Duration) error {
	if ms.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	ms.cancel = cancel

	ms.Monitor.Start(ctx, interval)

	log.Infow("merge monitor service started")
	return nil
}

// Stop halts the merge monitor service.
func (ms *MergeMonitorService) Stop() {
	if ms.cancel != nil {
		ms.cancel()
		ms.cancel = nil

		if ms.Monitor != nil {
			ms.Monitor.Close()
		}

		log.Infow("merge monitor service stopped")
	}
}
