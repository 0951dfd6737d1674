package results

import (
	"sync"

	"github.com/mitchellh/copystructure"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Cache holds completed, write-once record pages by caller-supplied key,
// plus an in-flight flag per key. Entries never expire; Reset drops
// everything.
//
// Callers must only supply a key when the underlying data can no longer
// change (e.g. a finished run).
type Cache struct {
	mu       sync.Mutex
	entries  map[string]Result
	inFlight map[string]bool
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries:  make(map[string]Result),
		inFlight: make(map[string]bool),
	}
}

// Get returns a copy of the completed entry for key.
func (c *Cache) Get(key string) (Result, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return Result{}, false
	}
	return cloneResult(entry), true
}

// InFlight reports whether a fetch for key is underway.
func (c *Cache) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[key]
}

// MarkInFlight flags key as being fetched. It returns false, without
// changing anything, when key is already completed or already in flight;
// exactly one caller wins for a given key.
func (c *Cache) MarkInFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, done := c.entries[key]; done || c.inFlight[key] {
		return false
	}
	c.inFlight[key] = true
	return true
}

// Complete stores result under key and clears its in-flight flag.
func (c *Cache) Complete(key string, result Result) {
	stored := cloneResult(result)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = stored
	delete(c.inFlight, key)
}

// Abort clears the in-flight flag for key without storing anything.
func (c *Cache) Abort(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, key)
}

// Reset drops all entries and in-flight flags.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Result)
	c.inFlight = make(map[string]bool)
}

// Len returns the number of completed entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cloneResult(r Result) Result {
	if copied, err := copystructure.Copy(r); err == nil {
		if out, ok := copied.(Result); ok {
			return out
		}
	}

	out := Result{Loading: r.Loading, List: RecordsList{NextPageToken: r.List.NextPageToken}}
	out.List.Records = append([]Record(nil), r.List.Records...)
	out.Items = make([]*unstructured.Unstructured, len(r.Items))
	for i, item := range r.Items {
		if item != nil {
			out.Items[i] = item.DeepCopy()
		}
	}
	return out
}

// placeholder is returned to a caller that finds its key in flight.
func placeholder() Result {
	return Result{
		Items:   []*unstructured.Unstructured{},
		List:    RecordsList{Records: []Record{}},
		Loading: true,
	}
}

// emptyPage is what a 404 from the listing endpoint turns into.
func emptyPage() Result {
	return Result{
		Items: []*unstructured.Unstructured{},
		List:  RecordsList{Records: []Record{}},
	}
}
