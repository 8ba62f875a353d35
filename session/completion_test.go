package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsneelabh/evalsession/expr"
)

func TestProcessCompletionScoped(t *testing.T) {
	m := &expr.Match{
		MatchedText: "a.pu",
		Scope:       "a",
		LeftOp:      ".",
		Selector:    "pu",
		RightOp:     "",
	}
	req := &completionRequest{match: m, code: "a.pu", cursorPos: 4}

	payload := processCompletion([]string{"push", "pop", "shift"}, req)

	// scoped completion does not pull in the reserved-word/global set, and
	// each surviving candidate is re-wrapped with the scope's operator
	// rather than the scope text itself.
	assert.Equal(t, []string{".push"}, payload.List)
	assert.Equal(t, "a.pu", payload.MatchedText)
}

func TestProcessCompletionBracketNotation(t *testing.T) {
	m := &expr.Match{
		MatchedText: `a["pu`,
		Scope:       "a",
		LeftOp:      `["`,
		Selector:    "pu",
		RightOp:     `"]`,
	}
	req := &completionRequest{match: m, code: `a["pu`, cursorPos: 5}

	payload := processCompletion([]string{"push", "pop"}, req)

	assert.Equal(t, []string{`["push"]`}, payload.List)
}

func TestProcessCompletionDedupesAndSorts(t *testing.T) {
	// a non-empty scope keeps the reserved-word/global set out of the
	// candidate pool, isolating the dedupe/sort behavior under test.
	m := &expr.Match{MatchedText: "s.c", Scope: "s", LeftOp: ".", Selector: "c"}
	req := &completionRequest{match: m, code: "s.c", cursorPos: 3}

	payload := processCompletion([]string{"charAt", "charAt", "codePointAt"}, req)

	assert.Equal(t, []string{".charAt", ".codePointAt"}, payload.List)
}

func TestEmptyCompletion(t *testing.T) {
	payload := emptyCompletion("foo ", 4)
	assert.Nil(t, payload.List)
	assert.Equal(t, "foo ", payload.Code)
	assert.Equal(t, 4, payload.CursorStart)
	assert.Equal(t, 4, payload.CursorEnd)
}
