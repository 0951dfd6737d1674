package filter

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Expression is one matchExpressions entry.
type Expression struct {
	Key      string   `json:"key" yaml:"key"`
	Operator Operator `json:"operator" yaml:"operator"`
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// Selector is the structured label-matching criteria the console passes down.
// When neither MatchLabels nor MatchExpressions is set, Labels is treated as
// a flat equality map.
type Selector struct {
	MatchLabels      map[string]string `json:"matchLabels,omitempty" yaml:"matchLabels,omitempty"`
	MatchExpressions []Expression      `json:"matchExpressions,omitempty" yaml:"matchExpressions,omitempty"`
	FilterByName     string            `json:"filterByName,omitempty" yaml:"filterByName,omitempty"`
	Labels           map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

var lower = cases.Lower(language.Und)

func labelRef(key string) string {
	return "data.metadata.labels[" + quote(key) + "]"
}

// LabelsToFilter renders an equality test per label, in key order.
func LabelsToFilter(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	exprs := make([]string, 0, len(keys))
	for _, k := range keys {
		exprs = append(exprs, EQ(labelRef(k), labels[k]))
	}
	return AND(exprs...)
}

// NameFilter renders a case-insensitive name prefix test.
func NameFilter(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return "data.metadata.name.startsWith(" + quote(lower.String(name)) + ")"
}

// ExpressionsToFilter renders matchExpressions. Expressions missing the values
// their operator needs are skipped. Unknown operators fail.
func ExpressionsToFilter(expressions []Expression) (string, error) {
	exprs := make([]string, 0, len(expressions))
	for _, e := range expressions {
		rendered, err := expressionToFilter(e)
		if err != nil {
			return "", err
		}
		exprs = append(exprs, rendered)
	}
	return AND(exprs...), nil
}

func expressionToFilter(e Expression) (string, error) {
	first := ""
	if len(e.Values) > 0 {
		first = e.Values[0]
	}

	switch e.Operator {
	case OpExists:
		return "data.metadata.labels.contains(" + quote(e.Key) + ")", nil
	case OpDoesNotExist:
		return "!data.metadata.labels.contains(" + quote(e.Key) + ")", nil
	case OpNotIn:
		neqs := make([]string, 0, len(e.Values))
		for _, v := range e.Values {
			neqs = append(neqs, NEQ(labelRef(e.Key), v))
		}
		return AND(neqs...), nil
	case OpIn:
		if len(e.Values) == 0 {
			return "", nil
		}
		quoted := make([]string, 0, len(e.Values))
		for _, v := range e.Values {
			quoted = append(quoted, quote(v))
		}
		return fmt.Sprintf("%s in [%s]", labelRef(e.Key), strings.Join(quoted, ",")), nil
	case OpEquals:
		if first == "" {
			return "", nil
		}
		return EQ(labelRef(e.Key), first), nil
	case OpNotEquals, OpNotEqual:
		if first == "" {
			return "", nil
		}
		return NEQ(labelRef(e.Key), first), nil
	case OpGreaterThan:
		if first == "" {
			return "", nil
		}
		return binary(labelRef(e.Key), first, ">"), nil
	case OpLessThan:
		if first == "" {
			return "", nil
		}
		return binary(labelRef(e.Key), first, "<"), nil
	default:
		return "", apperrors.UnsupportedOperator(string(e.Operator))
	}
}

// SelectorToFilter renders the whole selector: name prefix, then matchLabels,
// then matchExpressions. A nil selector yields "".
func SelectorToFilter(sel *Selector) (string, error) {
	if sel == nil {
		return "", nil
	}

	filter := NameFilter(sel.FilterByName)
	if sel.MatchLabels == nil && sel.MatchExpressions == nil {
		return AND(filter, LabelsToFilter(sel.Labels)), nil
	}

	exprs, err := ExpressionsToFilter(sel.MatchExpressions)
	if err != nil {
		return "", err
	}
	return AND(filter, LabelsToFilter(sel.MatchLabels), exprs), nil
}

// FromLabelSelector converts a Kubernetes label selector. Kubernetes only has
// In, NotIn, Exists and DoesNotExist, all of which map one to one.
func FromLabelSelector(ls *metav1.LabelSelector) *Selector {
	if ls == nil {
		return nil
	}
	sel := &Selector{}
	if len(ls.MatchLabels) > 0 {
		sel.MatchLabels = make(map[string]string, len(ls.MatchLabels))
		for k, v := range ls.MatchLabels {
			sel.MatchLabels[k] = v
		}
	}
	for _, req := range ls.MatchExpressions {
		sel.MatchExpressions = append(sel.MatchExpressions, Expression{
			Key:      req.Key,
			Operator: Operator(req.Operator),
			Values:   append([]string(nil), req.Values...),
		})
	}
	return sel
}

// ParseLabelSelector parses kubectl-style selector syntax
// ("app=web,tier in (a,b),!canary") into a Selector.
func ParseLabelSelector(s string) (*Selector, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	ls, err := metav1.ParseToLabelSelector(s)
	if err != nil {
		return nil, apperrors.Validation("invalid label selector %q: %v", s, err)
	}
	return FromLabelSelector(ls), nil
}
