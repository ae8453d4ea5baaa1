package query

import (
	"fmt"
	"time"

	"gridquery/app/metrics"
)

// stageReporter times the stages of one recompute and reports them to a
// ProgressCallback. Large inputs also get a start event carrying the
// estimated output size.
type stageReporter struct {
	callback ProgressCallback
	total    int
	done     int
	started  time.Time
}

func newStageReporter(callback ProgressCallback, total int) *stageReporter {
	return &stageReporter{callback: callback, total: total}
}

// start is called before a stage runs over inputRows rows
func (r *stageReporter) start(stage PipelineStage, inputRows int) {
	r.started = time.Now()
	if r.callback == nil || inputRows <= MinRowsForProgress {
		return
	}
	estimate := int64(-1)
	if ratio := stage.EstimateOutputSize(); ratio >= 0 {
		estimate = int64(float64(inputRows) * ratio)
	}
	r.callback(stage.Name(), 0, estimate, fmt.Sprintf("Stage %d/%d: %s over %d rows", r.done+1, r.total, stage.Name(), inputRows))
}

// finish is called with the stage output size. Cached stages are never started.
func (r *stageReporter) finish(stage PipelineStage, rows int, cached bool) {
	r.done++
	source := "computed"
	var elapsed time.Duration
	if cached {
		source = "cached"
	} else {
		elapsed = time.Since(r.started)
		metrics.StageDuration.WithLabelValues(stage.Name()).Observe(elapsed.Seconds())
	}
	if r.callback == nil {
		return
	}
	r.callback(stage.Name(), int64(rows), int64(rows), fmt.Sprintf("Stage %d/%d: %s %s (%d rows, %v)",
		r.done, r.total, stage.Name(), source, rows, elapsed.Truncate(time.Microsecond)))
}

// LogProgressCallback logs every progress event at debug level
func LogProgressCallback(logger Logger) ProgressCallback {
	return func(stage string, current, total int64, message string) {
		if logger != nil {
			logger.Log("debug", "[QUERY_PROGRESS] "+message)
		}
	}
}
