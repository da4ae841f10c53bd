package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tapline/tapline-backend/internal/stations"
	"github.com/tapline/tapline-backend/pkg/db/models"
	"github.com/tapline/tapline-backend/pkg/logger"
	"github.com/tapline/tapline-backend/pkg/metrics"
)

// FailoverTracker watches per-station delivery health. Routing itself
// never considers reachability; only delivery consults the tracker, and
// only after a station has been failing longer than its configured
// timeout does its backup take over.
type FailoverTracker struct {
	stations stations.Repository
	metrics  *metrics.DispatchMetrics
	logg     *logger.Logger
	now      func() time.Time

	mu           sync.Mutex
	firstFailure map[uuid.UUID]time.Time
}

// NewFailoverTracker builds the tracker.
func NewFailoverTracker(repo stations.Repository, m *metrics.DispatchMetrics, logg *logger.Logger) (*FailoverTracker, error) {
	if repo == nil {
		return nil, fmt.Errorf("stations repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &FailoverTracker{
		stations:     repo,
		metrics:      m,
		logg:         logg,
		now:          time.Now,
		firstFailure: make(map[uuid.UUID]time.Time),
	}, nil
}

// RecordFailure notes a failed delivery. The first failure starts the
// station's failover clock.
func (f *FailoverTracker) RecordFailure(stationID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.firstFailure[stationID]; !ok {
		f.firstFailure[stationID] = f.now()
	}
}

// RecordSuccess clears the station's failover clock.
func (f *FailoverTracker) RecordSuccess(stationID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.firstFailure, stationID)
}

// Down reports whether the station has been failing longer than the
// given timeout.
func (f *FailoverTracker) Down(stationID uuid.UUID, timeout time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	since, ok := f.firstFailure[stationID]
	if !ok {
		return false
	}
	return f.now().Sub(since) >= timeout
}

// EffectiveTarget resolves where a ticket for the station should land
// right now. A healthy station receives its own tickets; an unreachable
// one hands off to its backup once its configured timeout has elapsed.
// A zero timeout means failover is not configured for the station, and
// without a configured backup the original station stays the target and
// delivery keeps retrying.
func (f *FailoverTracker) EffectiveTarget(ctx context.Context, station models.Station) (models.Station, bool) {
	timeout := time.Duration(station.FailoverTimeout) * time.Second
	if timeout <= 0 {
		return station, false
	}
	if !f.Down(station.ID, timeout) || station.BackupStationID == nil {
		return station, false
	}

	backup, err := f.stations.GetStation(ctx, *station.BackupStationID)
	if err != nil {
		logCtx := f.logg.WithFields(ctx, map[string]any{
			"station_id": station.ID.String(),
			"backup_id":  station.BackupStationID.String(),
		})
		f.logg.Error(logCtx, "backup station lookup failed", err)
		return station, false
	}

	f.metrics.IncFailover(station.Name)
	logCtx := f.logg.WithFields(ctx, map[string]any{
		"station_id": station.ID.String(),
		"backup_id":  backup.ID.String(),
	})
	f.logg.Warn(logCtx, "station unreachable beyond timeout; rerouting to backup")
	return *backup, true
}
