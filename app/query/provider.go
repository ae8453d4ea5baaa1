package query

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gridquery/app/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ProviderRequest asks a server-side source for one page of rows
type ProviderRequest struct {
	Page     int
	PageSize int
	Sort     []SortKey
	Filters  []FilterNode
}

// ProviderResponse is one page of rows and the total row count after filtering
type ProviderResponse struct {
	Rows  []Row
	Total int
}

// DataProvider serves filtered, sorted pages of a dataset held elsewhere
type DataProvider interface {
	Fetch(ctx context.Context, req ProviderRequest) (ProviderResponse, error)
}

// ProviderFunc adapts a function to DataProvider
type ProviderFunc func(ctx context.Context, req ProviderRequest) (ProviderResponse, error)

// Fetch calls f
func (f ProviderFunc) Fetch(ctx context.Context, req ProviderRequest) (ProviderResponse, error) {
	return f(ctx, req)
}

// RefreshResult is the outcome of one refresh. Provider errors and panics
// are reported in Err. Stale is set when a newer refresh started before this
// one completed; the caller decides whether to apply it.
type RefreshResult struct {
	RequestID string
	Seq       uint64
	Request   ProviderRequest
	Rows      []Row
	Total     int
	Err       error
	Stale     bool
}

// RemoteSource wraps a DataProvider for server-side mode
type RemoteSource struct {
	provider DataProvider
	logger   Logger
	seq      atomic.Uint64

	mu      sync.Mutex
	onError func(RefreshResult)
}

// NewRemoteSource creates a remote source over provider
func NewRemoteSource(provider DataProvider, logger Logger) *RemoteSource {
	return &RemoteSource{provider: provider, logger: logger}
}

// OnError registers a listener for failed refreshes
func (s *RemoteSource) OnError(fn func(RefreshResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = fn
}

func (s *RemoteSource) logf(level, format string, args ...any) {
	if s.logger != nil {
		s.logger.Log(level, fmt.Sprintf(format, args...))
	}
}

// Refresh calls the provider once and reports the outcome. It never panics
// and never retries.
func (s *RemoteSource) Refresh(ctx context.Context, req ProviderRequest) RefreshResult {
	timer := prometheus.NewTimer(metrics.RecomputeDuration.WithLabelValues("remote"))
	defer timer.ObserveDuration()

	res := RefreshResult{
		RequestID: uuid.NewString(),
		Seq:       s.seq.Add(1),
		Request:   req,
	}

	if err := ctx.Err(); err != nil {
		res.Err = err
	} else {
		resp, err := s.fetch(ctx, req)
		res.Rows, res.Total, res.Err = resp.Rows, resp.Total, err
	}
	res.Stale = s.seq.Load() != res.Seq

	switch {
	case res.Err != nil:
		metrics.ProviderCalls.WithLabelValues("error").Inc()
		s.logf("error", "[PROVIDER_ERROR] request=%s seq=%d: %v", res.RequestID, res.Seq, res.Err)
		s.mu.Lock()
		listener := s.onError
		s.mu.Unlock()
		if listener != nil {
			listener(res)
		}
	case res.Stale:
		metrics.ProviderCalls.WithLabelValues("stale").Inc()
		s.logf("debug", "[PROVIDER_STALE] request=%s seq=%d superseded", res.RequestID, res.Seq)
	default:
		metrics.ProviderCalls.WithLabelValues("ok").Inc()
		s.logf("debug", "[PROVIDER_OK] request=%s seq=%d rows=%d total=%d", res.RequestID, res.Seq, len(res.Rows), res.Total)
	}
	return res
}

func (s *RemoteSource) fetch(ctx context.Context, req ProviderRequest) (resp ProviderResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = ProviderResponse{}
			err = fmt.Errorf("data provider panic: %v", r)
		}
	}()
	if s.provider == nil {
		return ProviderResponse{}, fmt.Errorf("no data provider configured")
	}
	return s.provider.Fetch(ctx, req)
}

// RefreshAsync runs Refresh in a goroutine and delivers the result on the
// returned channel, which is closed afterwards.
func (s *RemoteSource) RefreshAsync(ctx context.Context, req ProviderRequest) <-chan RefreshResult {
	ch := make(chan RefreshResult, 1)
	go func() {
		defer close(ch)
		ch <- s.Refresh(ctx, req)
	}()
	return ch
}

// Latest returns the sequence number of the most recent refresh
func (s *RemoteSource) Latest() uint64 {
	return s.seq.Load()
}

// RecomputeRemote fetches one page from src and runs grouping, aggregation
// and pivoting locally over the returned rows. Filter, sort and paging are
// the provider's job. A failed refresh yields a nil state and the result
// carrying the error.
func (e *Engine) RecomputeRemote(ctx context.Context, src *RemoteSource, in Inputs) (*DerivedState, RefreshResult) {
	res := src.Refresh(ctx, ProviderRequest{
		Page:     in.Page,
		PageSize: in.PageSize,
		Sort:     in.Sort,
		Filters:  in.Filters,
	})
	if res.Err != nil {
		metrics.RecomputeTotal.WithLabelValues("error").Inc()
		return nil, res
	}

	// The page is not addressable by dataset id, so nothing is memoized
	b := NewPipelineBuilder("", nil, e.progress, e.logger, e.config)
	if len(in.Group) > 0 || len(in.Aggregates) > 0 {
		b.AddGroup(in.Group, in.Aggregates, in.Collapsed)
	}
	if in.Pivot != nil {
		b.AddPivot(*in.Pivot)
	}
	b.AddPage(1, 0)

	result, err := b.Build().Execute(ctx, &StageResult{Rows: res.Rows, Total: res.Total})
	if err != nil {
		res.Err = err
		metrics.RecomputeTotal.WithLabelValues("canceled").Inc()
		return nil, res
	}
	metrics.RecomputeTotal.WithLabelValues("ok").Inc()

	state := newDerivedState(result.StageResult, 0)
	state.Total = res.Total
	if in.PageSize > 0 {
		state.PageCount = PageCount(res.Total, in.PageSize)
	}
	state.Key = result.Key
	return state, res
}
