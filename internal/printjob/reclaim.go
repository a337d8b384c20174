package printjob

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunReclaimer returns stale PROCESSING jobs to PENDING every interval
// until ctx is done. A non-positive olderThan disables it.
func RunReclaimer(ctx context.Context, q *Queue, olderThan, interval time.Duration) {
	if olderThan <= 0 {
		return
	}
	if interval <= 0 {
		interval = olderThan / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs, err := q.Reclaim(ctx, olderThan)
			if err != nil {
				zap.L().Error("print job reclaim failed", zap.Error(err))
				continue
			}
			for _, j := range jobs {
				zap.L().Warn("print job reclaimed",
					zap.String("print_job_id", j.ID.String()),
					zap.Int32("attempts", j.Attempts),
				)
			}
		}
	}
}
