package monitor

import (
	"context"
	"sync"

	"poolwatch/internal/model"
	"poolwatch/internal/notify"
	"poolwatch/internal/probe"
)

type fakeReader struct {
	mu        sync.Mutex
	latest    uint64
	latestErr error
	filterErr error
	events    []model.CreationEvent
	queries   []BlockRange
}

func (f *fakeReader) LatestBlock(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.latestErr != nil {
		return 0, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeReader) FilterPoolCreated(_ context.Context, fromBlock, toBlock uint64) ([]model.CreationEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	f.queries = append(f.queries, BlockRange{From: fromBlock, To: toBlock})

	var matched []model.CreationEvent
	for _, event := range f.events {
		if event.BlockNumber >= fromBlock && event.BlockNumber <= toBlock {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

func (f *fakeReader) recordedQueries() []BlockRange {
	f.mu.Lock()
	defer f.mu.Unlock()
	queries := make([]BlockRange, len(f.queries))
	copy(queries, f.queries)
	return queries
}

type fakeProber struct {
	mu      sync.Mutex
	results map[string]probe.Result
	errs    map[string]error
	calls   map[string]int
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		results: make(map[string]probe.Result),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeProber) Check(_ context.Context, poolAddress string) (probe.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[poolAddress]++
	if err, ok := f.errs[poolAddress]; ok {
		return probe.Result{}, err
	}
	return f.results[poolAddress], nil
}

type dispatchCall struct {
	pool model.Pool
	kind string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []dispatchCall
	result notify.Result
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{result: notify.Result{Success: true, Channels: 1}}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, pool model.Pool, kind string) notify.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dispatchCall{pool: pool, kind: kind})
	return f.result
}

func (f *fakeDispatcher) dispatched() []dispatchCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]dispatchCall, len(f.calls))
	copy(calls, f.calls)
	return calls
}
