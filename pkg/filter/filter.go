// Package filter evaluates a user-supplied Lisp predicate against each
// component to decide whether it is written. It wraps zygomys in a
// sandboxed environment: expressions cannot touch the filesystem.
//
// Available builtins:
//
//	(triangles)  number of faces in the component
//	(vertices)   number of distinct vertices the faces reference
//	(index)      1-based component number
//	(extent)     longest side of the component's bounding box
package filter

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError is a compile or runtime error in a filter expression.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("filter: line %d: %s", e.Line, e.Message)
	}
	return "filter: " + e.Message
}

// Stats are the component attributes exposed to an expression.
type Stats struct {
	Index     int
	Triangles int
	Vertices  int
	Extent    float64
}

// Filter is a compiled predicate. The zero value and a nil *Filter match
// everything.
type Filter struct {
	source string
}

// Compile checks that source parses. An empty source yields a filter that
// accepts every component.
func Compile(source string) (*Filter, error) {
	source = preprocessSource(source)
	if blank(source) {
		return &Filter{}, nil
	}

	sandboxMu.Lock()
	defer sandboxMu.Unlock()
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, Stats{})
	if err := env.LoadString(wrapSource(source)); err != nil {
		return nil, parseZygomysError(err)
	}
	return &Filter{source: source}, nil
}

// Source returns the preprocessed expression.
func (f *Filter) Source() string {
	if f == nil {
		return ""
	}
	return f.source
}

// Match evaluates the predicate for one component. Each call runs in a
// fresh sandbox and is bounded by EvalTimeout and ctx.
func (f *Filter) Match(ctx context.Context, s Stats) (bool, error) {
	if f == nil || f.source == "" {
		return true, nil
	}

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("filter: panic during evaluation: %v", r)}
			}
		}()
		ok, err := f.evaluate(s)
		ch <- evalResult{match: ok, err: err}
	}()

	return waitWithTimeout(ctx, ch)
}

// sandboxMu serializes sandbox use: building a zygomys environment writes
// package-level state inside zygomys.
var sandboxMu sync.Mutex

// wrapSource makes the whole program one form so that its value, even a
// bare atom such as 1 or true, is what Run returns. The closing paren goes
// on its own line so a trailing comment cannot swallow it.
func wrapSource(source string) string {
	return "(begin " + source + "\n)"
}

func (f *Filter) evaluate(s Stats) (bool, error) {
	sandboxMu.Lock()
	defer sandboxMu.Unlock()
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, s)

	if err := env.LoadString(wrapSource(f.source)); err != nil {
		return false, parseZygomysError(err)
	}
	res, err := env.Run()
	if err != nil {
		return false, parseZygomysError(err)
	}
	return truthy(res)
}

// truthy interprets the value of the last expression.
func truthy(res zygo.Sexp) (bool, error) {
	switch v := res.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpInt:
		return v.Val != 0, nil
	}
	if res == zygo.SexpNull {
		return false, EvalError{Message: "expression yielded no value"}
	}
	return false, EvalError{Message: fmt.Sprintf("expression must yield a boolean, got %s", res.SexpString(nil))}
}

func registerBuiltins(env *zygo.Zlisp, s Stats) {
	intFn := func(n int) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 0 {
				return zygo.SexpNull, fmt.Errorf("%s takes no arguments", name)
			}
			return &zygo.SexpInt{Val: int64(n)}, nil
		}
	}
	env.AddFunction("triangles", intFn(s.Triangles))
	env.AddFunction("vertices", intFn(s.Vertices))
	env.AddFunction("index", intFn(s.Index))
	env.AddFunction("extent", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("%s takes no arguments", name)
		}
		return &zygo.SexpFloat{Val: s.Extent}, nil
	})
}

// preprocessSource turns traditional ';' line comments into the '//'
// comments zygomys understands, leaving string literals alone.
func preprocessSource(source string) string {
	var b strings.Builder
	inString := false
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case inString:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(source) {
				i++
				b.WriteByte(source[i])
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
			b.WriteByte(c)
		case c == ';':
			b.WriteString("//")
			for i+1 < len(source) && source[i+1] == ';' {
				i++
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// blank reports whether source holds only whitespace and line comments.
func blank(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "//") {
			return false
		}
	}
	return true
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into an EvalError, keeping
// the line number when the message carries one.
func parseZygomysError(err error) EvalError {
	msg := err.Error()
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return EvalError{Line: line, Message: strings.TrimSpace(m[2])}
	}
	return EvalError{Message: strings.TrimSpace(msg)}
}
