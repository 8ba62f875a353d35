package main

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/itsneelabh/evalsession/worker"
)

// exprEvaluator is a minimal demonstration Evaluator. This module defines
// no source language of its own; exprEvaluator exists only so evalworker
// has something to evaluate out of the box. It understands a single Go
// expression built from int/float/string literals, the usual arithmetic,
// comparison, and boolean operators, and a short allow-list of builtin
// calls — enough to exercise the worker protocol end to end without
// attempting a real interpreter.
type exprEvaluator struct {
	builtins map[string]func([]interface{}) (interface{}, error)
}

func newExprEvaluator() *exprEvaluator {
	e := &exprEvaluator{}
	e.builtins = map[string]func([]interface{}) (interface{}, error){
		"len":   builtinLen,
		"upper": builtinUpper,
		"lower": builtinLower,
		"print": e.builtinPrint,
	}
	return e
}

func (e *exprEvaluator) Name() string { return "expr-demo" }

func (e *exprEvaluator) Capabilities() []string {
	names := make([]string, 0, len(e.builtins))
	for name := range e.builtins {
		names = append(names, name)
	}
	return names
}

func (e *exprEvaluator) Evaluate(ctx context.Context, code string) (interface{}, error) {
	expr, err := parser.ParseExpr(strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return e.eval(ctx, expr)
}

func (e *exprEvaluator) eval(ctx context.Context, expr ast.Expr) (interface{}, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	switch n := expr.(type) {
	case *ast.BasicLit:
		return literalValue(n)
	case *ast.ParenExpr:
		return e.eval(ctx, n.X)
	case *ast.UnaryExpr:
		return e.evalUnary(ctx, n)
	case *ast.BinaryExpr:
		return e.evalBinary(ctx, n)
	case *ast.Ident:
		switch n.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("undefined identifier: %s", n.Name)
	case *ast.CallExpr:
		return e.evalCall(ctx, n)
	default:
		return nil, fmt.Errorf("unsupported expression: %T", expr)
	}
}

func (e *exprEvaluator) evalCall(ctx context.Context, n *ast.CallExpr) (interface{}, error) {
	ident, ok := n.Fun.(*ast.Ident)
	if !ok {
		return nil, fmt.Errorf("unsupported call target: %T", n.Fun)
	}
	fn, ok := e.builtins[ident.Name]
	if !ok {
		return nil, fmt.Errorf("undefined function: %s", ident.Name)
	}
	args := make([]interface{}, 0, len(n.Args))
	for _, a := range n.Args {
		v, err := e.eval(ctx, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return fn(args)
}

func (e *exprEvaluator) evalUnary(ctx context.Context, n *ast.UnaryExpr) (interface{}, error) {
	v, err := e.eval(ctx, n.X)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.SUB:
		switch x := v.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		}
	case token.NOT:
		if b, ok := v.(bool); ok {
			return !b, nil
		}
	}
	return nil, fmt.Errorf("unsupported unary operator %s for %T", n.Op, v)
}

func (e *exprEvaluator) evalBinary(ctx context.Context, n *ast.BinaryExpr) (interface{}, error) {
	left, err := e.eval(ctx, n.X)
	if err != nil {
		return nil, err
	}
	right, err := e.eval(ctx, n.Y)
	if err != nil {
		return nil, err
	}
	return applyBinary(n.Op, left, right)
}

// builtinPrint sends its arguments, joined by spaces, to the active
// request via worker.Current's Helpers.Text as a non-terminal text/plain
// result message (not a stdout message), and returns the joined text.
func (e *exprEvaluator) builtinPrint(args []interface{}) (interface{}, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	text := strings.Join(parts, " ")
	if wc := worker.Current(); wc != nil {
		wc.Helpers.Text(text+"\n", true)
	}
	return text, nil
}

func builtinLen(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len: expected 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("len: expected string, got %T", args[0])
	}
	return int64(len(s)), nil
}

func builtinUpper(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("upper: expected 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("upper: expected string, got %T", args[0])
	}
	return strings.ToUpper(s), nil
}

func builtinLower(args []interface{}) (interface{}, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("lower: expected 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("lower: expected string, got %T", args[0])
	}
	return strings.ToLower(s), nil
}
