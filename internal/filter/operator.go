package filter

import (
	apperrors "github.com/openshift-pipelines/tekton-results-reader/pkg/errors"
)

// Operator is a label-selector expression operator.
type Operator string

const (
	OpExists       Operator = "Exists"
	OpDoesNotExist Operator = "DoesNotExist"
	OpIn           Operator = "In"
	OpNotIn        Operator = "NotIn"
	OpEquals       Operator = "Equals"
	OpNotEquals    Operator = "NotEquals"
	// OpNotEqual is the spelling some callers send; same meaning as OpNotEquals
	OpNotEqual    Operator = "NotEqual"
	OpGreaterThan Operator = "GreaterThan"
	OpLessThan    Operator = "LessThan"
)

var supportedOperators = []Operator{
	OpExists, OpDoesNotExist, OpIn, OpNotIn, OpEquals, OpNotEquals, OpNotEqual, OpGreaterThan, OpLessThan,
}

// Operators returns every operator that has a filter translation.
func Operators() []Operator {
	out := make([]Operator, len(supportedOperators))
	copy(out, supportedOperators)
	return out
}

// IsValid reports whether the operator has a filter translation.
func (o Operator) IsValid() bool {
	for _, op := range supportedOperators {
		if op == o {
			return true
		}
	}
	return false
}

// ParseOperator returns the operator named s, or an UnsupportedOperator error.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if !op.IsValid() {
		return "", apperrors.UnsupportedOperator(s)
	}
	return op, nil
}
