package cron

import (
	"context"
	"log/slog"
	"time"
)

// Purger deletes visitor captures older than the cutoff.
type Purger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Refresher reloads the in-memory descriptor stores.
type Refresher interface {
	RefreshAll(ctx context.Context) error
}

// RevocationSyncer loads persisted kiosk revocations into memory.
type RevocationSyncer interface {
	SyncRevocations(ctx context.Context) error
}

// VisitorRetention removes visitor captures older than retention.
func VisitorRetention(purger Purger, retention time.Duration, now func() time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		purged, err := purger.Purge(ctx, now().Add(-retention))
		if err != nil {
			return err
		}
		if purged > 0 {
			slog.Info("Cron: purged visitor captures", "count", purged, "retention", retention)
		}
		return nil
	}
}

// DescriptorRefresh reloads live descriptor stores.
func DescriptorRefresh(refresher Refresher) func(ctx context.Context) error {
	return refresher.RefreshAll
}

// RegisterHousekeeping adds the standard jobs to s.
func RegisterHousekeeping(s *Scheduler, purger Purger, retention time.Duration, refresher Refresher, refreshEvery time.Duration) {
	s.AddJob(Job{
		Name:     "visitor_retention",
		Interval: time.Hour,
		Timeout:  10 * time.Minute,
		Fn:       VisitorRetention(purger, retention, time.Now),
	})
	if refreshEvery > 0 {
		s.AddJob(Job{
			Name:     "descriptor_refresh",
			Interval: refreshEvery,
			Fn:       DescriptorRefresh(refresher),
		})
	}
}

// RegisterRevocationSync keeps the in-memory kiosk revocation set in step
// with the device table.
func RegisterRevocationSync(s *Scheduler, syncer RevocationSyncer, every time.Duration) {
	if every <= 0 {
		return
	}
	s.AddJob(Job{
		Name:     "kiosk_revocation_sync",
		Interval: every,
		Fn:       syncer.SyncRevocations,
	})
}
