package workflows

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/core/ports"
	"github.com/adierro/courtscan/internal/core/usecases"
	"github.com/adierro/courtscan/internal/pkg/metrics"
)

// sweepClasses is the set of detection classes the verification sweep walks.
var sweepClasses = []string{
	"basketball-court",
	"tennis-court",
	"soccer-field",
	"baseball-diamond",
	"track-field",
}

// ScanActivities holds the activity implementations for the scan workflow.
type ScanActivities struct {
	Scans    *usecases.ScanService
	Verifier *usecases.VerificationService
	Courts   ports.CourtRepository
}

// RunAreaScan runs the tile grid scan and records scan metrics.
func (a *ScanActivities) RunAreaScan(ctx context.Context, input ScanInput) (*usecases.ScanResult, error) {
	start := time.Now()
	result, err := a.Scans.Run(ctx, input.UserID, domain.GeoPoint{Lat: input.Lat, Lon: input.Lon}, input.Radius)
	if err != nil {
		return nil, fmt.Errorf("run scan: %w", err)
	}

	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	metrics.TilesScanned.Add(float64(result.TileCount - result.FailedTiles))
	return result, nil
}

// SweepPendingVerifications recomputes verification for pending courts that
// already have feedback, and returns how many were promoted. Courts promoted
// here were missed by the event path, usually after a broker outage.
func (a *ScanActivities) SweepPendingVerifications(ctx context.Context) (int, error) {
	promoted := 0
	for _, class := range sweepClasses {
		courts, err := a.Courts.ListByClassStatus(ctx, class, domain.StatusPending)
		if err != nil {
			return promoted, fmt.Errorf("list pending %s courts: %w", class, err)
		}
		for i := range courts {
			if courts[i].TotalFeedbackCount == 0 {
				continue
			}
			court, err := a.Verifier.Recompute(ctx, courts[i].SourceDetectionID)
			if err != nil {
				log.Printf("sweep recompute court %s: %v", courts[i].ID, err)
				continue
			}
			if court.Status == domain.StatusVerified {
				promoted++
			}
		}
	}
	return promoted, nil
}
