package policy

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/georgepadayatti/goades/diagnostic"
)

var (
	celOnce sync.Once
	celEnv  *cel.Env
	celErr  error
)

func environment() (*cel.Env, error) {
	celOnce.Do(func() {
		celEnv, celErr = cel.NewEnv(
			cel.Variable("token", cel.DynType),
			cel.Variable("reference_time", cel.TimestampType),
			cel.Variable("current_time", cel.TimestampType),
		)
	})
	return celEnv, celErr
}

type program struct {
	prg cel.Program
}

func compileExpression(expr string) (*program, error) {
	env, err := environment()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return a bool, got %s", ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	return &program{prg: prg}, nil
}

// Eval runs a custom constraint against tok. It reports whether the
// expression holds; a runtime error means the input the expression needed
// was absent.
func (c ConstraintSpec) Eval(tok diagnostic.Token, ref, now time.Time) (bool, error) {
	if c.program == nil {
		return false, fmt.Errorf("constraint %s has no compiled expression", c.Name)
	}
	out, _, err := c.program.prg.Eval(map[string]any{
		"token":          tok.Attributes(),
		"reference_time": ref,
		"current_time":   now,
	})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("constraint %s returned %T, want bool", c.Name, out.Value())
	}
	return b, nil
}
