package results

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/openshift-pipelines/tekton-results-reader/internal/filter"
	"github.com/openshift-pipelines/tekton-results-reader/pkg/constants"
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
)

const (
	MinPageSize = 5
	MaxPageSize = 10000

	DefaultRecordsPageSize = 50
	DefaultSummaryPageSize = 30
)

// Query is a records or summary request before it is bound to a transport.
// The direct transport renders it as a URL, the proxy transport posts it.
type Query struct {
	SearchNamespace string
	Params          url.Values
	Summary         bool
}

// Path is the API path below the parents prefix, without query string.
func (q Query) Path() string {
	path := q.SearchNamespace + "/results/-/records"
	if q.Summary {
		path += "/summary"
	}
	return path
}

// URL renders the full HTTPS URL against host ("host:port").
func (q Query) URL(host string) string {
	return "https://" + host + constants.ResultsAPIPrefix + q.Path() + "?" + q.Params.Encode()
}

// PageSize returns the page size to request: Limit when set and >= 0, else
// PageSize, else def, clamped to [MinPageSize, MaxPageSize].
func PageSize(opts *Options, def int) int {
	requested := def
	if limit, ok := opts.limit(); ok {
		requested = limit
	} else if opts != nil && opts.PageSize != nil {
		requested = *opts.PageSize
	}
	return max(MinPageSize, min(MaxPageSize, requested))
}

// SearchNamespace maps "" and the all-namespaces sentinel to "-".
func SearchNamespace(namespace string) string {
	if namespace == "" || namespace == constants.AllNamespacesKey {
		return "-"
	}
	return namespace
}

// RecordsQuery builds a records list query. The filter is the conjunction of
// the data type, the caller's raw filter, the selector and opts.Filter.
func RecordsQuery(namespace string, dataType DataType, rawFilter string, opts *Options, pageToken string) (Query, error) {
	var sel *filter.Selector
	var extra string
	if opts != nil {
		sel = opts.Selector
		extra = opts.Filter
	}

	selectorFilter, err := filter.SelectorToFilter(sel)
	if err != nil {
		return Query{}, err
	}

	params := url.Values{}
	params.Set("page_size", strconv.Itoa(PageSize(opts, DefaultRecordsPageSize)))
	if pageToken != "" {
		params.Set("page_token", pageToken)
	}
	params.Set("filter", filter.AND(
		filter.EQ("data_type", string(dataType)),
		rawFilter,
		selectorFilter,
		extra,
	))

	return Query{SearchNamespace: SearchNamespace(namespace), Params: params}, nil
}

// SummaryQuery builds a records summary query. opts.Summary names the
// aggregations (e.g. "total,succeeded,failed") and is required. An empty
// opts.DataType summarises every type.
func SummaryQuery(namespace string, opts *Options, pageToken string) (Query, error) {
	if opts == nil || strings.TrimSpace(opts.Summary) == "" {
		return Query{}, apperrors.Validation("summary query needs at least one summary field")
	}

	selectorFilter, err := filter.SelectorToFilter(opts.Selector)
	if err != nil {
		return Query{}, err
	}

	params := url.Values{}
	params.Set("summary", opts.Summary)
	if opts.GroupBy != "" {
		params.Set("group_by", opts.GroupBy)
	}
	params.Set("page_size", strconv.Itoa(PageSize(opts, DefaultSummaryPageSize)))
	if pageToken != "" {
		params.Set("page_token", pageToken)
	}
	dataTypeFilter := ""
	if opts.DataType != "" {
		dataTypeFilter = filter.EQ("data_type", string(opts.DataType))
	}
	params.Set("filter", filter.AND(dataTypeFilter, opts.Filter, selectorFilter))

	return Query{SearchNamespace: SearchNamespace(namespace), Params: params, Summary: true}, nil
}

// LogPath turns a record path ("ns/results/uid/records/uid") into the path of
// its log ("ns/results/uid/logs/uid"). Only the first "/records/" is replaced.
func LogPath(recordPath string) string {
	return strings.Replace(recordPath, "/records/", "/logs/", 1)
}

// LogURL renders the full HTTPS URL of a log path against host.
func LogURL(host, logPath string) string {
	return "https://" + host + constants.ResultsAPIPrefix + logPath
}
