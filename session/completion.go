package session

import (
	"sort"
	"strings"

	"github.com/itsneelabh/evalsession/expr"
	"github.com/itsneelabh/evalsession/ipc"
)

// completionRequest carries the expression-extractor match and the
// original code/cursor through to the point where the worker's property
// names come back, so post-processing (§4.1) can assemble the final
// completion payload.
type completionRequest struct {
	match     *expr.Match
	code      string
	cursorPos int
}

// processCompletion implements the completion post-processing rules of
// spec §4.1: filter the candidate set by the selector's prefix, re-prefix/
// suffix with the scope's leftOp/rightOp, and compute the replacement
// span via the longest common prefix of the code tail and the shortest
// surviving candidate.
func processCompletion(names []string, req *completionRequest) ipc.CompletionPayload {
	m := req.match

	candidates := make([]string, len(names))
	copy(candidates, names)
	if m.Scope == "" {
		candidates = append(candidates, globalScopeNames...)
	}

	filtered := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !strings.HasPrefix(c, m.Selector) {
			continue
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		filtered = append(filtered, c)
	}
	sort.Strings(filtered)

	list := make([]string, len(filtered))
	for i, c := range filtered {
		list[i] = m.LeftOp + c + m.RightOp
	}

	cursorStart := strings.Index(req.code, m.MatchedText)
	if cursorStart < 0 {
		cursorStart = req.cursorPos
	}
	cursorEnd := cursorStart
	if len(filtered) > 0 {
		shortest := filtered[0]
		for _, c := range filtered {
			if len(c) < len(shortest) {
				shortest = c
			}
		}
		tail := req.code[min(cursorStart, len(req.code)):]
		cursorEnd = cursorStart + commonPrefixLen(tail, shortest)
	}
	if cursorEnd > len(req.code) {
		cursorEnd = len(req.code)
	}

	return ipc.CompletionPayload{
		List:        list,
		Code:        req.code,
		CursorPos:   req.cursorPos,
		MatchedText: m.MatchedText,
		CursorStart: cursorStart,
		CursorEnd:   cursorEnd,
	}
}

// emptyCompletion is delivered synchronously, without engaging the
// worker, when the expression extractor finds no match at all.
func emptyCompletion(code string, cursorPos int) ipc.CompletionPayload {
	return ipc.CompletionPayload{
		List:        nil,
		Code:        code,
		CursorPos:   cursorPos,
		MatchedText: "",
		CursorStart: cursorPos,
		CursorEnd:   cursorPos,
	}
}

func commonPrefixLen(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
