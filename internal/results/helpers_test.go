package results

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// fakeTransport serves canned bodies and records what it was asked.
type fakeTransport struct {
	mu       sync.Mutex
	calls    int
	queries  []Query
	logPaths []string

	body  []byte
	err   error
	pages map[string][]byte // by page_token, overrides body

	logBody []byte
	logErr  error

	// When set, Fetch signals started and then waits for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeTransport) Fetch(ctx context.Context, q Query) ([]byte, error) {
	f.mu.Lock()
	f.calls++
	f.queries = append(f.queries, q)
	started, release := f.started, f.release
	body, err := f.body, f.err
	if page, ok := f.pages[q.Params.Get("page_token")]; ok {
		body = page
	}
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return body, err
}

func (f *fakeTransport) FetchLog(_ context.Context, logPath string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.logPaths = append(f.logPaths, logPath)
	return f.logBody, f.logErr
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func encodeValue(obj map[string]interface{}) string {
	raw, err := json.Marshal(obj)
	if err != nil {
		panic(err)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func pipelineRun(name string) map[string]interface{} {
	return map[string]interface{}{
		"apiVersion": "tekton.dev/v1",
		"kind":       "PipelineRun",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": "demo",
		},
	}
}

func record(name string) Record {
	return Record{
		Name: "demo/results/" + name + "/records/" + name,
		UID:  name,
		Data: RecordData{Type: string(DataTypePipelineRun), Value: encodeValue(pipelineRun(name))},
	}
}

func recordsBody(n int, nextPageToken string) []byte {
	list := RecordsList{NextPageToken: nextPageToken}
	for i := 0; i < n; i++ {
		list.Records = append(list.Records, record(fmt.Sprintf("run-%d", i)))
	}
	raw, err := json.Marshal(list)
	if err != nil {
		panic(err)
	}
	return raw
}

func unstructuredField(obj map[string]interface{}, fields ...string) (interface{}, bool, error) {
	return unstructured.NestedFieldNoCopy(obj, fields...)
}
