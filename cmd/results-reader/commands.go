package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openshift-pipelines/tekton-results-reader/internal/filter"
	"github.com/openshift-pipelines/tekton-results-reader/internal/results"
)

// queryFlags are shared by records and summary
type queryFlags struct {
	namespace  string
	selector   string
	name       string
	filter     string
	pageSize   int
	limit      int
	pageToken  string
	apiVersion string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&q.namespace, "namespace", "n", "", "Namespace to search; empty searches all namespaces")
	f.StringVarP(&q.selector, "selector", "l", "", "Label selector (app=web,tier in (a,b),!canary)")
	f.StringVar(&q.name, "name", "", "Case-insensitive name prefix")
	f.StringVar(&q.filter, "filter", "", "Extra CEL filter ANDed into the query")
	f.IntVar(&q.pageSize, "page-size", 0, "Records per page (clamped to 5..10000)")
	f.IntVar(&q.limit, "limit", -1, "Return at most this many records and no next page")
	f.StringVar(&q.pageToken, "page-token", "", "Token of the page to read")
	f.StringVar(&q.apiVersion, "api-version", "v1", "Tekton API version of the stored records (v1, v1beta1)")
}

// options builds results.Options, applying the configured defaults for
// anything the flags leave unset.
func (q *queryFlags) options(a *app) (*results.Options, error) {
	sel, err := filter.ParseLabelSelector(q.selector)
	if err != nil {
		return nil, err
	}
	if q.name != "" {
		if sel == nil {
			sel = &filter.Selector{}
		}
		sel.FilterByName = q.name
	}

	opts := &results.Options{
		Selector: sel,
		Filter:   filter.AND(a.cfg.Spec.Defaults.Filter, q.filter),
		PageSize: a.cfg.Spec.Defaults.PageSizeOrNil(),
	}
	if q.pageSize > 0 {
		opts.PageSize = results.Int(q.pageSize)
	}
	if q.limit >= 0 {
		opts.Limit = results.Int(q.limit)
	}
	return opts, nil
}

// dataTypeFor maps a kind argument and --api-version to a DataType
func dataTypeFor(kind, apiVersion string) (results.DataType, error) {
	var k string
	switch strings.ToLower(kind) {
	case "pipelinerun", "pipelineruns", "pr":
		k = "PipelineRun"
	case "taskrun", "taskruns", "tr":
		k = "TaskRun"
	default:
		return "", fmt.Errorf("unknown kind %q (supported: pipelineruns, taskruns)", kind)
	}
	dt := results.DataType("tekton.dev/" + apiVersion + "." + k)
	if !dt.IsValid() {
		return "", fmt.Errorf("unsupported api version %q (supported: v1, v1beta1)", apiVersion)
	}
	return dt, nil
}

// signalContext cancels on SIGINT/SIGTERM
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newRecordsCommand() *cobra.Command {
	var q queryFlags
	var all bool
	var maxPages int

	cmd := &cobra.Command{
		Use:       "records (pipelineruns|taskruns)",
		Short:     "List archived PipelineRuns or TaskRuns",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"pipelineruns", "taskruns"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataType, err := dataTypeFor(args[0], q.apiVersion)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer a.shutdown()

			opts, err := q.options(a)
			if err != nil {
				return err
			}

			if all {
				pager := a.fetcher.NewPager(q.namespace, dataType, "", opts)
				items, err := pager.All(ctx, maxPages)
				if err != nil {
					return err
				}
				return printDocument(cmd.OutOrStdout(), outputFormat, newRecordsOutput(items, pager.NextPageToken()))
			}

			result, err := a.fetcher.GetFilteredRecord(ctx, q.namespace, dataType, "", opts, q.pageToken, "")
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), outputFormat, newRecordsOutput(result.Items, result.List.NextPageToken))
		},
	}

	q.register(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "Follow next page tokens until the listing is exhausted")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "With --all, stop after this many pages (0 means no bound)")
	addOutputFlag(cmd)
	return cmd
}

func newLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs RECORD",
		Short: "Print the log of a TaskRun record",
		Long: `Print the log of a TaskRun record. RECORD is the record name as returned by
the results API, e.g. my-ns/results/6f1c.../records/0a2b....`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer a.shutdown()

			l, err := a.fetcher.GetTaskRunLog(ctx, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), l.Text)
			return err
		},
	}
}

func newSummaryCommand() *cobra.Command {
	var q queryFlags
	var summary, groupBy, kind string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate archived runs (counts, durations) grouped by a field",
		Long: `Aggregate archived runs through the records summary endpoint, e.g.

  results-reader summary -n demo --summary total,succeeded,failed --group-by pipeline --kind pipelineruns

Summaries are only served by the direct transport.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			a, err := setup(ctx, true)
			if err != nil {
				return err
			}
			defer a.shutdown()

			opts, err := q.options(a)
			if err != nil {
				return err
			}
			opts.Summary = summary
			opts.GroupBy = groupBy
			if kind != "" {
				if opts.DataType, err = dataTypeFor(kind, q.apiVersion); err != nil {
					return err
				}
			}

			s, err := a.fetcher.GetResultsSummary(ctx, q.namespace, opts, q.pageToken)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), outputFormat, s)
		},
	}

	q.register(cmd)
	cmd.Flags().StringVar(&summary, "summary", "total", "Comma separated aggregations (total, succeeded, failed, ...)")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Field to group by (pipeline, namespace, day, ...)")
	cmd.Flags().StringVar(&kind, "kind", "", "Restrict to pipelineruns or taskruns; empty summarises every type")
	addOutputFlag(cmd)
	return cmd
}
