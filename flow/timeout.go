package flow

import (
	"context"
	"errors"
	"time"
)

// runStepWithTimeout executes a step under the engine's per-step
// timeout. Zero timeout runs the step directly.
func runStepWithTimeout(ctx context.Context, step Step, tc *ThreadContext, timeout time.Duration) (StepResult, error) {
	if timeout <= 0 {
		return step.Run(ctx, tc)
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := step.Run(stepCtx, tc)
	if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		return result, &StepError{
			Message: "exceeded timeout of " + timeout.String(),
			Code:    "STEP_TIMEOUT",
			StepID:  step.Name(),
			Cause:   context.DeadlineExceeded,
		}
	}
	return result, err
}
