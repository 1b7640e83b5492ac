package vm

import (
	"math"
	"strings"
)

// Operator names accepted by Unary and Binary.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
	OpMod = "%"
	OpEq  = "=="
	OpNe  = "!="
	OpLt  = "<"
	OpLe  = "<="
	OpGt  = ">"
	OpGe  = ">="
	OpAnd = "and"
	OpOr  = "or"
	OpNot = "not"
	OpNeg = "neg"
)

// maxSequenceLen bounds the length of strings and lists built by
// repetition or range.
const maxSequenceLen = 1 << 28

func repeatFault(n int64) *Fault {
	return newFault(RuntimeFault, ErrIndexRange, "repeat count %d exceeds the maximum length of %d", n, maxSequenceLen)
}

// Unary applies not or numeric negation.
type Unary struct {
	Node
	Op      string
	Operand Command
}

func (c *Unary) Execute(ctx *Context) (Value, error) {
	v, sig, err := evalValue(ctx, c.Operand)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	switch c.Op {
	case OpNot:
		return !Truthy(v), nil
	case OpNeg, OpSub:
		switch x := v.(type) {
		case int64:
			return -x, nil
		case float64:
			return -x, nil
		}
		if m, ok := operatorMethod(v, OpNeg); ok {
			return Call(ctx, m)
		}
		return nil, newFault(RuntimeFault, ErrTypeMismatch, "cannot negate %s", TypeName(v))
	}
	return nil, NewFault("unknown unary operator %q", c.Op)
}

// Binary applies an arithmetic, comparison or logical operator. and/or
// short-circuit and evaluate to the deciding operand.
type Binary struct {
	Node
	Op    string
	Left  Command
	Right Command
}

func (c *Binary) Execute(ctx *Context) (Value, error) {
	left, sig, err := evalValue(ctx, c.Left)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	switch c.Op {
	case OpAnd:
		if !Truthy(left) {
			return left, nil
		}
		return Exec(ctx, c.Right)
	case OpOr:
		if Truthy(left) {
			return left, nil
		}
		return Exec(ctx, c.Right)
	}
	right, sig, err := evalValue(ctx, c.Right)
	if sig != nil || err != nil {
		return forward(sig, err)
	}
	return BinaryOp(ctx, c.Op, left, right)
}

// BinaryOp applies a non-short-circuit operator to two values. Objects
// may define a method named after the operator.
func BinaryOp(ctx *Context, op string, a, b Value) (Value, error) {
	switch op {
	case OpEq:
		return Equal(ctx, a, b)
	case OpNe:
		eq, err := Equal(ctx, a, b)
		return !eq, err
	}
	if m, ok := operatorMethod(a, op); ok {
		return Call(ctx, m, b)
	}
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return arith(op, a, b)
	case OpLt, OpLe, OpGt, OpGe:
		cmp, err := compare(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case OpLt:
			return cmp < 0, nil
		case OpLe:
			return cmp <= 0, nil
		case OpGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	}
	return nil, NewFault("unknown binary operator %q", op)
}

func operatorMethod(v Value, op string) (Value, bool) {
	obj, ok := v.(*LngObject)
	if !ok {
		return nil, false
	}
	m, ok := obj.Field(op)
	if !ok || !isCallable(m) {
		return nil, false
	}
	return m, true
}

func arith(op string, a, b Value) (Value, error) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return intArith(op, x, y)
		}
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return floatArith(op, x, y), nil
		}
	}
	switch op {
	case OpAdd:
		if sa, ok := a.(string); ok {
			return sa + Stringify(b), nil
		}
		if sb, ok := b.(string); ok {
			return Stringify(a) + sb, nil
		}
		if la, ok := a.(*List); ok {
			if lb, ok := b.(*List); ok {
				return NewList(append(la.Items(), lb.Items()...)...), nil
			}
		}
	case OpMul:
		if s, ok := a.(string); ok {
			if n, ok := b.(int64); ok && n >= 0 {
				if len(s) > 0 && n > maxSequenceLen/int64(len(s)) {
					return nil, repeatFault(n)
				}
				return strings.Repeat(s, int(n)), nil
			}
		}
		if l, ok := a.(*List); ok {
			if n, ok := b.(int64); ok && n >= 0 {
				items := l.Items()
				if len(items) == 0 {
					return NewList(), nil
				}
				if n > maxSequenceLen/int64(len(items)) {
					return nil, repeatFault(n)
				}
				out := make([]Value, 0, len(items)*int(n))
				for i := int64(0); i < n; i++ {
					out = append(out, items...)
				}
				return NewList(out...), nil
			}
		}
	}
	return nil, newFault(RuntimeFault, ErrTypeMismatch, "unsupported operand types for %s: %s and %s", op, TypeName(a), TypeName(b))
}

func intArith(op string, x, y int64) (Value, error) {
	switch op {
	case OpAdd:
		return x + y, nil
	case OpSub:
		return x - y, nil
	case OpMul:
		return x * y, nil
	case OpDiv:
		if y == 0 {
			return nil, newFault(RuntimeFault, ErrZeroDivide, "division by zero")
		}
		return x / y, nil
	default:
		if y == 0 {
			return nil, newFault(RuntimeFault, ErrZeroDivide, "modulo by zero")
		}
		m := x % y
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m, nil
	}
}

func floatArith(op string, x, y float64) Value {
	switch op {
	case OpAdd:
		return x + y
	case OpSub:
		return x - y
	case OpMul:
		return x * y
	case OpDiv:
		return x / y
	default:
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m
	}
}

// compare orders numbers numerically and strings lexically.
func compare(a, b Value) (int, error) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			return strings.Compare(x, y), nil
		}
	}
	return 0, newFault(RuntimeFault, ErrTypeMismatch, "cannot compare %s with %s", TypeName(a), TypeName(b))
}
