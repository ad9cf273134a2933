package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ReencodeInput is the input for the re-encoding workflow.
type ReencodeInput struct {
	ShapeID   string
	Precision int
}

// EncodingSnapshot captures a shape's encoding state so it can be restored.
type EncodingSnapshot struct {
	Encoded    string
	Precision  int
	PointCount int
}

// ReencodeWorkflow re-encodes a stored shape at a new precision. The prior
// encoding is snapshotted first; if publishing the change event fails, the
// snapshot is restored (saga compensation).
func ReencodeWorkflow(ctx workflow.Context, input ReencodeInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting reencode workflow", "shapeID", input.ShapeID, "precision", input.Precision)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Snapshot the current encoding
	var snapshot EncodingSnapshot
	err := workflow.ExecuteActivity(ctx, "SnapshotEncoding", input.ShapeID).Get(ctx, &snapshot)
	if err != nil {
		return err
	}

	if snapshot.Precision == input.Precision {
		logger.Info("Shape already at requested precision", "shapeID", input.ShapeID)
		return nil
	}

	// Step 2: Re-encode and persist
	err = workflow.ExecuteActivity(ctx, "ReencodeShape", input.ShapeID, input.Precision).Get(ctx, nil)
	if err != nil {
		return err
	}

	// Step 3: Publish the change event
	err = workflow.ExecuteActivity(ctx, "PublishReencoded", input.ShapeID, input.Precision).Get(ctx, nil)
	if err != nil {
		logger.Warn("publish failed, restoring prior encoding", "error", err)
		// Compensate: put the old encoding back
		_ = workflow.ExecuteActivity(ctx, "RestoreEncoding", input.ShapeID, snapshot).Get(ctx, nil)
		return err
	}

	logger.Info("Shape re-encoded", "shapeID", input.ShapeID, "precision", input.Precision)
	return nil
}
