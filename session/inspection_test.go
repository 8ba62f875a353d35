package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsneelabh/evalsession/docs"
	"github.com/itsneelabh/evalsession/expr"
	"github.com/itsneelabh/evalsession/ipc"
)

func TestAttachContext(t *testing.T) {
	payload := &ipc.InspectionPayload{String: "[ 1, 2, 3 ]", Type: "Array"}
	req := &inspectionRequest{
		match:     &expr.Match{MatchedText: "a"},
		code:      "var a = [1, 2, 3];",
		cursorPos: 5,
	}

	attachContext(payload, req)

	assert.Equal(t, "var a = [1, 2, 3];", payload.Code)
	assert.Equal(t, 5, payload.CursorPos)
	assert.Equal(t, "a", payload.MatchedText)
}

func TestEmptyInspection(t *testing.T) {
	payload := emptyInspection("x", 1)
	assert.Equal(t, "undefined", payload.String)
	assert.Equal(t, "Undefined", payload.Type)
	assert.Equal(t, "x", payload.Code)
	assert.Equal(t, 1, payload.CursorPos)
}

func TestResolveDocDirect(t *testing.T) {
	table := docs.NewTable(map[string]docs.Record{
		"parseInt": {Summary: "parses a string", Body: "https://example/parseInt"},
	})
	m := &expr.Match{Selector: "parseInt"}

	rec := resolveDoc(table, m, nil)
	assert.True(t, rec.Found)
	assert.Equal(t, "parses a string", rec.Description)
}

func TestResolveDocViaScopeConstructors(t *testing.T) {
	table := docs.NewTable(map[string]docs.Record{
		"Array.prototype.push": {Summary: "adds to the end", Body: "https://example/push"},
	})
	m := &expr.Match{Scope: "a", Selector: "push"}

	rec := resolveDoc(table, m, []string{"Array", "Object"})
	assert.True(t, rec.Found)
	assert.Equal(t, "adds to the end", rec.Description)

	missing := resolveDoc(table, &expr.Match{Scope: "a", Selector: "missing"}, []string{"Array", "Object"})
	assert.False(t, missing.Found)
}

func TestResolveDocNilTable(t *testing.T) {
	rec := resolveDoc(nil, &expr.Match{Selector: "parseInt"}, nil)
	assert.False(t, rec.Found)
}
