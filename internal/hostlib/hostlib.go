// Package hostlib provides the native functions `ksc run` binds to
// bodyless declarations in a shader.
package hostlib

import (
	"fmt"
	"io"
	"math"

	"ksc/internal/backend"
)

// Symbols returns the host functions, writing any output to w.
func Symbols(w io.Writer) map[string]backend.NativeFunc {
	return map[string]backend.NativeFunc{
		// CompareTwoInt(int a, int b) prints a-b with its operands.
		"CompareTwoInt": func(_ *backend.Memory, args []backend.Val) backend.Val {
			a, b := args[0].I, args[1].I
			fmt.Fprintf(w, "test value is %d (%d, %d)", int32(a-b), a, b)
			return backend.Val{}
		},
		"print_int": func(_ *backend.Memory, args []backend.Val) backend.Val {
			fmt.Fprintln(w, args[0].I)
			return backend.Val{}
		},
		"print_float": func(_ *backend.Memory, args []backend.Val) backend.Val {
			fmt.Fprintln(w, float32(args[0].F))
			return backend.Val{}
		},
		"sqrt": unary(math.Sqrt),
		"sin":  unary(math.Sin),
		"cos":  unary(math.Cos),
		"pow": func(_ *backend.Memory, args []backend.Val) backend.Val {
			return backend.FloatVal(math.Pow(args[0].F, args[1].F))
		},
	}
}

func unary(f func(float64) float64) backend.NativeFunc {
	return func(_ *backend.Memory, args []backend.Val) backend.Val {
		return backend.FloatVal(f(args[0].F))
	}
}

// Register adds every host function to e.
func Register(e *backend.Engine, w io.Writer) {
	for name, fn := range Symbols(w) {
		e.RegisterSymbol(name, fn)
	}
}
