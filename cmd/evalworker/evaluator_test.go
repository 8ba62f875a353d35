package main

import (
	"context"
	"testing"
)

func evalExpr(t *testing.T, code string) interface{} {
	t.Helper()
	v, err := newExprEvaluator().Evaluate(context.Background(), code)
	if err != nil {
		t.Fatalf("Evaluate(%q) returned error: %v", code, err)
	}
	return v
}

func TestExprEvaluatorArithmetic(t *testing.T) {
	cases := map[string]interface{}{
		"1 + 2":      int64(3),
		"10 - 4 * 2": int64(2),
		"7 % 3":      int64(1),
		"1.5 + 2.5":  float64(4),
	}
	for code, want := range cases {
		if got := evalExpr(t, code); got != want {
			t.Errorf("Evaluate(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestExprEvaluatorStrings(t *testing.T) {
	if got := evalExpr(t, `"foo" + "bar"`); got != "foobar" {
		t.Errorf(`Evaluate(%q) = %v, want "foobar"`, `"foo" + "bar"`, got)
	}
	if got := evalExpr(t, `upper("hi")`); got != "HI" {
		t.Errorf("upper(\"hi\") = %v, want HI", got)
	}
	if got := evalExpr(t, `len("hello")`); got != int64(5) {
		t.Errorf(`len("hello") = %v, want 5`, got)
	}
}

func TestExprEvaluatorBooleans(t *testing.T) {
	if got := evalExpr(t, "1 < 2 && 3 > 2"); got != true {
		t.Errorf("Evaluate(boolean expr) = %v, want true", got)
	}
	if got := evalExpr(t, "!(1 == 2)"); got != true {
		t.Errorf("Evaluate(negation) = %v, want true", got)
	}
}

func TestExprEvaluatorDivisionByZero(t *testing.T) {
	if _, err := newExprEvaluator().Evaluate(context.Background(), "1 / 0"); err == nil {
		t.Error("Evaluate(1 / 0) expected an error, got nil")
	}
}

func TestExprEvaluatorUndefinedFunction(t *testing.T) {
	if _, err := newExprEvaluator().Evaluate(context.Background(), "bogus(1)"); err == nil {
		t.Error("Evaluate(bogus(1)) expected an error, got nil")
	}
}

func TestExprEvaluatorCapabilities(t *testing.T) {
	e := newExprEvaluator()
	if e.Name() != "expr-demo" {
		t.Errorf("Name() = %q, want expr-demo", e.Name())
	}
	caps := e.Capabilities()
	if len(caps) != len(e.builtins) {
		t.Errorf("Capabilities() returned %d entries, want %d", len(caps), len(e.builtins))
	}
}

func TestExprEvaluatorCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newExprEvaluator().Evaluate(ctx, "1 + 1"); err == nil {
		t.Error("Evaluate with a canceled context expected an error, got nil")
	}
}
