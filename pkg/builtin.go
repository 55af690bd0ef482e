package tilo

import (
	"fmt"
	"io"
	"math"
)

// hostDefaults is the extern environment every engine starts with: the
// usual math functions plus the two output helpers from the language
// runtime, printd and putchard.
func hostDefaults(out io.Writer) map[string]HostFunc {
	return map[string]HostFunc{
		"sin":   unary(math.Sin),
		"cos":   unary(math.Cos),
		"atan2": binary(math.Atan2),
		"printd": func(args ...float64) float64 {
			if len(args) > 0 {
				fmt.Fprintf(out, "%f\n", args[0])
			}
			return 0
		},
		"putchard": func(args ...float64) float64 {
			if len(args) > 0 {
				fmt.Fprintf(out, "%c", rune(args[0]))
			}
			return 0
		},
	}
}

// unary and binary adapt math functions to the host calling convention.
// Extern arity is declared by the user, so missing arguments are treated
// as zero rather than trusted to line up.

func unary(fn func(float64) float64) HostFunc {
	return func(args ...float64) float64 {
		if len(args) < 1 {
			return fn(0)
		}
		return fn(args[0])
	}
}

func binary(fn func(float64, float64) float64) HostFunc {
	return func(args ...float64) float64 {
		var x, y float64
		if len(args) > 0 {
			x = args[0]
		}
		if len(args) > 1 {
			y = args[1]
		}
		return fn(x, y)
	}
}
