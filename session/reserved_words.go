package session

// globalScopeNames is unioned into the candidate set when completion is
// requested against the empty (global) scope, per spec §4.1. It covers
// the reserved words and well-known globals of the source language the
// evaluator primitive is assumed to run, the same role the teacher's
// `core/schema_cache.go` gives a fixed well-known-names set alongside a
// dynamic lookup table.
var globalScopeNames = []string{
	"break", "case", "catch", "class", "const", "continue", "debugger",
	"default", "delete", "do", "else", "export", "extends", "finally",
	"for", "function", "if", "import", "in", "instanceof", "new",
	"return", "super", "switch", "this", "throw", "try", "typeof",
	"var", "void", "while", "with", "yield", "let",
	"console", "global", "process", "require", "module", "exports",
	"setTimeout", "setInterval", "setImmediate",
	"clearTimeout", "clearInterval", "clearImmediate",
	"Array", "Object", "Function", "Boolean", "Number", "String",
	"Symbol", "Error", "TypeError", "RangeError", "Promise", "Map", "Set",
	"JSON", "Math", "Date", "RegExp", "Buffer",
}
