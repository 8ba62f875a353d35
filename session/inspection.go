package session

import (
	"github.com/itsneelabh/evalsession/docs"
	"github.com/itsneelabh/evalsession/expr"
	"github.com/itsneelabh/evalsession/ipc"
)

// inspectionRequest carries the extractor match through to the point
// where the worker's inspection result comes back, so the controller can
// attach the original code/cursor/matchedText and attempt documentation
// resolution (§4.1).
type inspectionRequest struct {
	match     *expr.Match
	code      string
	cursorPos int
}

// attachContext stamps the original code/cursorPos/matchedText onto a
// worker-produced inspection payload, per the "always attach" rule.
func attachContext(payload *ipc.InspectionPayload, req *inspectionRequest) {
	payload.Code = req.code
	payload.CursorPos = req.cursorPos
	payload.MatchedText = req.match.MatchedText
}

// emptyInspection is delivered synchronously when the expression
// extractor finds no match.
func emptyInspection(code string, cursorPos int) ipc.InspectionPayload {
	return ipc.InspectionPayload{
		String:      "undefined",
		Type:        "Undefined",
		Code:        code,
		CursorPos:   cursorPos,
		MatchedText: "",
	}
}

// docRecord bundles a documentation lookup result the way the controller
// hands it to the caller alongside the structured inspection.
type docRecord struct {
	Found       bool
	Description string
	URL         string
}

// resolveDoc implements the documentation-resolution half of the
// inspection post-processing rule: direct lookup when the expression has
// no scope, otherwise probe `${ctor}.prototype.${selector}` for each
// entry of the scope's constructor list, in order, stopping at the first
// hit.
func resolveDoc(table *docs.Table, m *expr.Match, scopeConstructors []string) docRecord {
	if table == nil {
		return docRecord{}
	}
	if m.Scope == "" {
		if rec, ok := table.Lookup(m.Selector); ok {
			return docRecord{Found: true, Description: rec.Summary, URL: rec.Body}
		}
		return docRecord{}
	}
	for _, ctor := range scopeConstructors {
		name := ctor + ".prototype." + m.Selector
		if rec, ok := table.Lookup(name); ok {
			return docRecord{Found: true, Description: rec.Summary, URL: rec.Body}
		}
	}
	return docRecord{}
}
