package jobs

import (
	"context"
	"encoding/json"
	"sync"

	"pentellia/scan-core/internal/model"
)

// fakeExecutor is a scriptable Executor that counts calls per operation.
type fakeExecutor struct {
	mu sync.Mutex

	status     model.Status
	statusErr  error
	results    json.RawMessage
	resultsErr error
	cancelErr  error
	enqueueID  string
	enqueueErr error

	calls map[string]int

	enqueuedTool   string
	enqueuedTarget string
	enqueuedParams map[string]any
	cancelledID    string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{status: model.StatusQueued, enqueueID: "ext-new", calls: map[string]int{}}
}

func (f *fakeExecutor) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeExecutor) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeExecutor) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeExecutor) Enqueue(_ context.Context, tool, target string, params map[string]any) (string, error) {
	f.record("enqueue")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueuedTool, f.enqueuedTarget, f.enqueuedParams = tool, target, params
	return f.enqueueID, f.enqueueErr
}

func (f *fakeExecutor) Status(context.Context, string) (model.Status, error) {
	f.record("status")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.status, nil
}

func (f *fakeExecutor) Results(context.Context, string) (json.RawMessage, error) {
	f.record("results")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	return f.results, nil
}

func (f *fakeExecutor) Cancel(_ context.Context, id string) error {
	f.record("cancel")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelledID = id
	return f.cancelErr
}
