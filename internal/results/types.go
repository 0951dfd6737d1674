// Package results reads PipelineRun and TaskRun records and logs from the
// Tekton Results API, decodes them into unstructured objects and caches
// completed responses.
package results

import (
	"encoding/json"

	"github.com/openshift-pipelines/tekton-results-reader/internal/filter"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// DataType is the record payload type the results store indexes on.
type DataType string

const (
	DataTypePipelineRun DataType = "tekton.dev/v1.PipelineRun"
	DataTypeTaskRun     DataType = "tekton.dev/v1.TaskRun"

	// Older stores may still hold v1beta1 payloads.
	DataTypePipelineRunV1Beta1 DataType = "tekton.dev/v1beta1.PipelineRun"
	DataTypeTaskRunV1Beta1     DataType = "tekton.dev/v1beta1.TaskRun"
)

// DataTypes lists every known data type.
func DataTypes() []DataType {
	return []DataType{DataTypePipelineRun, DataTypeTaskRun, DataTypePipelineRunV1Beta1, DataTypeTaskRunV1Beta1}
}

// IsValid reports whether d is a known data type.
func (d DataType) IsValid() bool {
	for _, known := range DataTypes() {
		if d == known {
			return true
		}
	}
	return false
}

// RecordData is the typed, base64 encoded payload of a record.
type RecordData struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Record is a single stored entry.
type Record struct {
	Name       string     `json:"name"`
	UID        string     `json:"uid"`
	CreateTime string     `json:"createTime"`
	UpdateTime string     `json:"updateTime"`
	Etag       string     `json:"etag"`
	Data       RecordData `json:"data"`
}

// RecordsList is one page of records. An empty NextPageToken means there is
// no further page.
type RecordsList struct {
	Records       []Record `json:"records"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// Options tune a records or summary query. PageSize and Limit are pointers
// so that an explicit 0 can be told apart from "unset".
type Options struct {
	// PageSize requested from the server; clamped to [5, 10000].
	PageSize *int `json:"pageSize,omitempty"`
	// Limit, when >= 0, overrides PageSize and truncates the returned page.
	// A limited page never has a next page.
	Limit    *int             `json:"limit,omitempty"`
	Selector *filter.Selector `json:"selector,omitempty"`
	// Filter is an additional raw CEL expression.
	Filter string `json:"filter,omitempty"`

	// Summary queries only
	Summary  string   `json:"summary,omitempty"`
	DataType DataType `json:"dataType,omitempty"`
	GroupBy  string   `json:"groupBy,omitempty"`
}

// Int returns a pointer to v, for filling Options.
func Int(v int) *int {
	return &v
}

func (o *Options) limit() (int, bool) {
	if o == nil || o.Limit == nil || *o.Limit < 0 {
		return 0, false
	}
	return *o.Limit, true
}

// Result is the outcome of a records fetch: the decoded objects, the raw
// page they came from, and whether another caller is still fetching the
// same cache key (in which case both Items and List are empty).
type Result struct {
	Items   []*unstructured.Unstructured `json:"items"`
	List    RecordsList                  `json:"list"`
	Loading bool                         `json:"loading,omitempty"`
}

// Log is a task-run log body. When the body is valid JSON, JSON holds the
// parsed document; Text always holds the raw body.
type Log struct {
	Text string          `json:"-"`
	JSON json.RawMessage `json:"-"`
}

// IsJSON reports whether the log body parsed as JSON.
func (l Log) IsJSON() bool {
	return l.JSON != nil
}

// MarshalJSON emits the parsed document when there is one, the text otherwise.
func (l Log) MarshalJSON() ([]byte, error) {
	if l.IsJSON() {
		return l.JSON, nil
	}
	return json.Marshal(l.Text)
}

// Summary is the aggregated response of the records summary endpoint.
type Summary struct {
	Summary []map[string]interface{} `json:"summary"`
}
