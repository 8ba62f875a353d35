// Package expr extracts the expression immediately preceding a cursor
// position in a line of source, for completion and inspection requests
// that need to know what identifier/property access the client's cursor
// sits on without any knowledge of the evaluated language's own grammar.
package expr

import (
	"unicode"
	"unicode/utf8"
)

// Match describes the expression found immediately before a cursor
// position. A zero-value Match (all fields empty) is returned when there
// is nothing to complete — it is distinct from a nil *Match, which means
// the text preceding the cursor looked like a property access but could
// not be parsed (an unsupported scope expression).
type Match struct {
	MatchedText string
	Scope       string
	LeftOp      string
	Selector    string
	RightOp     string
}

// Parse finds the expression ending at cursorPos within code. It returns
// an empty Match when the cursor has nothing to its left worth
// completing, and nil when the text to the left of the cursor is a
// property access whose scope could not be parsed.
func Parse(code string, cursorPos int) *Match {
	if cursorPos < 0 {
		cursorPos = 0
	}
	if cursorPos > len(code) {
		cursorPos = len(code)
	}
	prefix := code[:cursorPos]

	if prefix == "" {
		return &Match{}
	}
	if last, _ := utf8.DecodeLastRuneInString(prefix); unicode.IsSpace(last) {
		return &Match{}
	}

	selStart, selOK := matchIdentifierEndingAt(prefix, len(prefix))
	selector := ""
	afterSelEnd := len(prefix)
	if selOK {
		selector = prefix[selStart:]
		afterSelEnd = selStart
	}

	leftOp, rightOp, opEnd := "", "", afterSelEnd
	switch {
	case opEnd >= 1 && prefix[opEnd-1] == '.':
		leftOp, rightOp = ".", ""
		opEnd--
	case opEnd >= 2 && prefix[opEnd-2:opEnd] == `["`:
		leftOp, rightOp = `["`, `"]`
		opEnd -= 2
	case opEnd >= 2 && prefix[opEnd-2:opEnd] == `['`:
		leftOp, rightOp = `['`, `']`
		opEnd -= 2
	}

	if leftOp == "" {
		return &Match{
			MatchedText: code[afterSelEnd:cursorPos],
			Selector:    selector,
		}
	}

	scopeStart, ok := parseComplexIdentifier(prefix, opEnd)
	if !ok {
		return nil
	}

	return &Match{
		MatchedText: code[scopeStart:cursorPos],
		Scope:       prefix[scopeStart:opEnd],
		LeftOp:      leftOp,
		Selector:    selector,
		RightOp:     rightOp,
	}
}

// parseComplexIdentifier walks s backward from end, stripping trailing
// ".ident", `["..."]`, and `['...']` segments, then requires a base
// identifier immediately before whatever remains. It returns the start
// index of the whole chain, or ok=false if no base identifier is found.
func parseComplexIdentifier(s string, end int) (int, bool) {
	for {
		if newEnd, ok := stripBracketSegment(s, end, '"'); ok {
			end = newEnd
			continue
		}
		if newEnd, ok := stripBracketSegment(s, end, '\''); ok {
			end = newEnd
			continue
		}
		if newEnd, ok := stripDotSegment(s, end); ok {
			end = newEnd
			continue
		}
		break
	}
	return matchIdentifierEndingAt(s, end)
}

// stripDotSegment strips a trailing ".ident" ending exactly at end.
func stripDotSegment(s string, end int) (int, bool) {
	identStart, ok := matchIdentifierEndingAt(s, end)
	if !ok {
		return end, false
	}
	if identStart < 1 || s[identStart-1] != '.' {
		return end, false
	}
	return identStart - 1, true
}

// stripBracketSegment strips a trailing `["..."]`/`['...']` segment (quote
// selects which) ending exactly at end.
func stripBracketSegment(s string, end int, quote byte) (int, bool) {
	if end < 2 || s[end-2] != quote || s[end-1] != ']' {
		return end, false
	}
	i := end - 2
	found := false
	for i > 0 {
		i--
		if s[i] == quote && (i == 0 || s[i-1] != '\\') {
			found = true
			break
		}
	}
	if !found || s[i] != quote {
		return end, false
	}
	if i < 1 || s[i-1] != '[' {
		return end, false
	}
	return i - 1, true
}

// matchIdentifierEndingAt finds the longest run of identifier-continue
// characters ending exactly at end, then, if its first rune is not a
// valid identifier-start character, advances the start forward until one
// is found (matching the behavior of a greedy `[_$a-zA-Z][_$a-zA-Z0-9]*$`
// regular expression). It returns ok=false if no such run exists.
func matchIdentifierEndingAt(s string, end int) (int, bool) {
	i := end
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if !isIdentContinue(r) {
			break
		}
		i -= size
	}
	if i == end {
		return end, false
	}
	for i < end {
		r, size := utf8.DecodeRuneInString(s[i:end])
		if isIdentStart(r) {
			break
		}
		i += size
	}
	if i == end {
		return end, false
	}
	return i, true
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
