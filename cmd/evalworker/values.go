package main

import (
	"fmt"
	"go/ast"
	"go/token"
	"strconv"
)

func literalValue(lit *ast.BasicLit) (interface{}, error) {
	switch lit.Kind {
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer literal %q: %w", lit.Value, err)
		}
		return n, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float literal %q: %w", lit.Value, err)
		}
		return f, nil
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid string literal %q: %w", lit.Value, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported literal kind: %s", lit.Kind)
	}
}

// applyBinary implements the small operator set exprEvaluator supports:
// arithmetic and comparison on int64/float64 (promoting int64 to float64
// when either operand is a float), string concatenation and comparison
// for token.ADD/token.EQL/token.NEQ, and boolean AND/OR.
func applyBinary(op token.Token, left, right interface{}) (interface{}, error) {
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			return nil, fmt.Errorf("type mismatch: string %s %T", op, right)
		}
		return applyStringBinary(op, ls, rs)
	}
	if lb, ok := left.(bool); ok {
		rb, ok := right.(bool)
		if !ok {
			return nil, fmt.Errorf("type mismatch: bool %s %T", op, right)
		}
		return applyBoolBinary(op, lb, rb)
	}

	lf, lIsFloat, err := numericValue(left)
	if err != nil {
		return nil, err
	}
	rf, rIsFloat, err := numericValue(right)
	if err != nil {
		return nil, err
	}
	if !lIsFloat && !rIsFloat {
		return applyIntBinary(op, left.(int64), right.(int64))
	}
	return applyFloatBinary(op, lf, rf)
}

func numericValue(v interface{}) (f float64, isFloat bool, err error) {
	switch n := v.(type) {
	case int64:
		return float64(n), false, nil
	case float64:
		return n, true, nil
	default:
		return 0, false, fmt.Errorf("expected a number, got %T", v)
	}
}

func applyIntBinary(op token.Token, l, r int64) (interface{}, error) {
	switch op {
	case token.ADD:
		return l + r, nil
	case token.SUB:
		return l - r, nil
	case token.MUL:
		return l * r, nil
	case token.QUO:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case token.REM:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l % r, nil
	case token.EQL:
		return l == r, nil
	case token.NEQ:
		return l != r, nil
	case token.LSS:
		return l < r, nil
	case token.LEQ:
		return l <= r, nil
	case token.GTR:
		return l > r, nil
	case token.GEQ:
		return l >= r, nil
	default:
		return nil, fmt.Errorf("unsupported operator for integers: %s", op)
	}
}

func applyFloatBinary(op token.Token, l, r float64) (interface{}, error) {
	switch op {
	case token.ADD:
		return l + r, nil
	case token.SUB:
		return l - r, nil
	case token.MUL:
		return l * r, nil
	case token.QUO:
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return l / r, nil
	case token.EQL:
		return l == r, nil
	case token.NEQ:
		return l != r, nil
	case token.LSS:
		return l < r, nil
	case token.LEQ:
		return l <= r, nil
	case token.GTR:
		return l > r, nil
	case token.GEQ:
		return l >= r, nil
	default:
		return nil, fmt.Errorf("unsupported operator for floats: %s", op)
	}
}

func applyStringBinary(op token.Token, l, r string) (interface{}, error) {
	switch op {
	case token.ADD:
		return l + r, nil
	case token.EQL:
		return l == r, nil
	case token.NEQ:
		return l != r, nil
	default:
		return nil, fmt.Errorf("unsupported operator for strings: %s", op)
	}
}

func applyBoolBinary(op token.Token, l, r bool) (interface{}, error) {
	switch op {
	case token.LAND:
		return l && r, nil
	case token.LOR:
		return l || r, nil
	case token.EQL:
		return l == r, nil
	case token.NEQ:
		return l != r, nil
	default:
		return nil, fmt.Errorf("unsupported operator for booleans: %s", op)
	}
}
