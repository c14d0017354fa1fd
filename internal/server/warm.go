package server

import (
	"context"
	"time"

	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/MeKo-Tech/redliningmap/internal/worker"
)

// WarmCache pre-filters the given bounding boxes into the response cache in
// parallel. It returns the number of boxes that failed.
func (s *Server) WarmCache(ctx context.Context, bboxes []types.BoundingBox, workers int) int {
	if len(bboxes) == 0 {
		return 0
	}

	tasks := make([]worker.Task, 0, len(bboxes))
	for _, b := range bboxes {
		tasks = append(tasks, worker.Task{BBox: b})
	}

	start := time.Now()
	pool := worker.New(worker.Config{
		Workers: workers,
		Warmer:  s,
		OnProgress: func(completed, total, failed int) {
			s.log().Debug("cache warm-up progress", "completed", completed, "total", total, "failed", failed)
		},
	})

	failed := 0
	for _, r := range pool.Run(ctx, tasks) {
		if r.Err != nil {
			failed++
			s.log().Warn("failed to warm bbox", "bbox", r.Task.BBox.String(), "error", r.Err)
			continue
		}
		s.log().Debug("warmed bbox", "bbox", r.Task.BBox.String(), "bytes", r.Size, "elapsed", r.Elapsed)
	}

	s.log().Info("cache warm-up complete",
		"bboxes", len(bboxes),
		"failed", failed,
		"cached", s.cache.Len(),
		"elapsed", time.Since(start),
	)
	return failed
}
