package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StartReconciler sweeps open sessions on a ticker until ctx is cancelled, so
// tables with no connected clients still reach their deadlines.
func (o *Orchestrator) StartReconciler(ctx context.Context) {
	if !o.cfg.ReconcileEnabled || o.cfg.ReconcileInterval <= 0 {
		log.Info().Msg("session reconciler disabled")
		return
	}
	ticker := time.NewTicker(o.cfg.ReconcileInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := o.ReconcileOnce(ctx); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("session reconcile sweep failed")
				}
			}
		}
	}()
}

type ReconcileSummary struct {
	Scanned int
	Acted   int
	Failed  int
}

// ReconcileOnce runs Enforce with the reconciler source over one batch of open
// sessions. A failure on one session does not stop the sweep.
func (o *Orchestrator) ReconcileOnce(ctx context.Context) (ReconcileSummary, error) {
	var sum ReconcileSummary
	ids, err := o.store.ListOpenSessionIDs(ctx, o.cfg.ReconcileBatch)
	if err != nil {
		return sum, transient("list open sessions", err)
	}
	metricReconcileRuns.Add(1)
	sweep := uuid.NewString()
	for _, id := range ids {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		sum.Scanned++
		resp, err := o.enforceWithTimeout(ctx, Request{
			SessionID: id,
			Source:    SourceReconciler,
			RequestID: sweep,
		})
		if err != nil {
			sum.Failed++
			log.Warn().Err(err).Str("session_id", id).Msg("reconcile enforce failed")
			continue
		}
		if len(resp.ActionsTaken) > 0 {
			sum.Acted++
		}
	}
	if sum.Acted > 0 || sum.Failed > 0 {
		log.Info().
			Int("scanned", sum.Scanned).
			Int("acted", sum.Acted).
			Int("failed", sum.Failed).
			Msg("session reconcile sweep")
	}
	return sum, nil
}

func (o *Orchestrator) enforceWithTimeout(ctx context.Context, req Request) (*Response, error) {
	if o.cfg.ReconcileTimeout <= 0 {
		return o.Enforce(ctx, req)
	}
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ReconcileTimeout)
	defer cancel()
	return o.Enforce(ctx, req)
}
