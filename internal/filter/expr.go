// Package filter builds the CEL filter expressions understood by the Tekton
// Results list API from structured label selectors.
package filter

import (
	"fmt"
	"strings"
)

// AND joins the non-empty expressions with "&&". No operands yields "".
func AND(expressions ...string) string {
	return strings.Join(nonEmpty(expressions), " && ")
}

// OR joins the non-empty expressions with "||". The result is parenthesised
// only when more than one operand remains, so it can be nested inside AND.
func OR(expressions ...string) string {
	operands := nonEmpty(expressions)
	joined := strings.Join(operands, " || ")
	if len(operands) > 1 {
		return "(" + joined + ")"
	}
	return joined
}

// EQ renders left == "right". The right operand is always a string literal.
func EQ(left, right string) string {
	return binary(left, quote(right), "==")
}

// NEQ renders left != "right".
func NEQ(left, right string) string {
	return binary(left, quote(right), "!=")
}

func binary(left, right, operator string) string {
	return fmt.Sprintf("%s %s %s", left, operator, right)
}

func quote(s string) string {
	return `"` + s + `"`
}

func nonEmpty(expressions []string) []string {
	out := make([]string, 0, len(expressions))
	for _, e := range expressions {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}
