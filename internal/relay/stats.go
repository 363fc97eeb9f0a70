package relay

import (
	"context"
	"time"

	"github.com/nerrad567/pushgate/internal/infrastructure/influxdb"
	"github.com/nerrad567/pushgate/internal/push"
)

// StatsSource provides manager state snapshots.
type StatsSource interface {
	Stats() push.Stats
}

// RunStats writes a stats snapshot to telemetry every interval until ctx is
// cancelled. It returns immediately when the relay has no telemetry sink or
// interval is not positive.
func (r *Relay) RunStats(ctx context.Context, source StatsSource, interval time.Duration) {
	if r.telemetry == nil || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.writeStats(source.Stats(), now)
		}
	}
}

func (r *Relay) writeStats(s push.Stats, at time.Time) {
	r.telemetry.WriteStats(influxdb.Snapshot{
		Connections:     s.Connections,
		Users:           s.Users,
		Channels:        s.Channels,
		ContentChannels: s.ContentChannels,
		PresenceEntries: s.PresenceEntries,
		At:              at,
	})
}
