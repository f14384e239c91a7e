package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/adierro/courtscan/internal/core/usecases"
)

// ScanInput is the input for the area scan workflow.
type ScanInput struct {
	UserID string
	Lat    float64
	Lon    float64
	Radius int
}

// ScanWorkflow orchestrates a durable area scan: fetch and run inference on
// the tile grid, then sweep pending courts whose feedback already meets the
// verification thresholds. The sweep repairs promotions missed when broker
// events were dropped.
func ScanWorkflow(ctx workflow.Context, input ScanInput) (*usecases.ScanResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting scan workflow", "radius", input.Radius)

	scanOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, scanOpts)

	// Step 1: Run the scan grid
	var result usecases.ScanResult
	err := workflow.ExecuteActivity(ctx, "RunAreaScan", input).Get(ctx, &result)
	if err != nil {
		return nil, err
	}

	// Step 2: Sweep pending courts for missed verifications
	sweepOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 2,
		},
	}
	sweepCtx := workflow.WithActivityOptions(ctx, sweepOpts)

	var promoted int
	err = workflow.ExecuteActivity(sweepCtx, "SweepPendingVerifications").Get(sweepCtx, &promoted)
	if err != nil {
		// The scan itself succeeded; the sweep runs again on the next scan.
		logger.Warn("verification sweep failed", "error", err)
	} else if promoted > 0 {
		logger.Info("verification sweep promoted courts", "count", promoted)
	}

	logger.Info("Scan workflow complete",
		"scanID", result.ScanID,
		"detections", result.Detections,
		"courtsCreated", result.CourtsCreated)
	return &result, nil
}
