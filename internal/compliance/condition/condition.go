// Package condition evaluates the optional CEL expression attached to a
// compliance action.
//
// Expressions see the holder's screening attributes:
//
//	holder, action, jurisdiction, kyc_level, accreditation, restriction_level  string
//	risk_score                                                                  int
//	is_pep, has_adverse_media                                                   bool
//
// Example: `risk_score < 600 || accreditation != 'None'`.
package condition

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Input is the variable binding for one evaluation.
type Input struct {
	Holder           string
	Action           string
	Jurisdiction     string
	KYCLevel         string
	Accreditation    string
	RestrictionLevel string
	RiskScore        int
	IsPEP            bool
	HasAdverseMedia  bool
}

func (in Input) activation() map[string]any {
	return map[string]any{
		"holder":            in.Holder,
		"action":            in.Action,
		"jurisdiction":      in.Jurisdiction,
		"kyc_level":         in.KYCLevel,
		"accreditation":     in.Accreditation,
		"restriction_level": in.RestrictionLevel,
		"risk_score":        int64(in.RiskScore),
		"is_pep":            in.IsPEP,
		"has_adverse_media": in.HasAdverseMedia,
	}
}

// Evaluator compiles expressions once and caches the programs by source.
type Evaluator struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func New() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("holder", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("jurisdiction", cel.StringType),
		cel.Variable("kyc_level", cel.StringType),
		cel.Variable("accreditation", cel.StringType),
		cel.Variable("restriction_level", cel.StringType),
		cel.Variable("risk_score", cel.IntType),
		cel.Variable("is_pep", cel.BoolType),
		cel.Variable("has_adverse_media", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}
	return &Evaluator{env: env, programs: make(map[string]cel.Program)}, nil
}

// Compile checks that source is a boolean expression over the known
// variables and caches its program.
func (e *Evaluator) Compile(source string) error {
	_, err := e.program(source)
	return err
}

func (e *Evaluator) program(source string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[source]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("condition compilation failed: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("condition must evaluate to bool, got %s", ast.OutputType())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program construction failed: %w", err)
	}

	e.mu.Lock()
	e.programs[source] = prg
	e.mu.Unlock()
	return prg, nil
}

// Eval runs source against in. An empty source passes.
func (e *Evaluator) Eval(source string, in Input) (bool, error) {
	if source == "" {
		return true, nil
	}
	prg, err := e.program(source)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(in.activation())
	if err != nil {
		return false, fmt.Errorf("condition evaluation failed: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, want bool", out.Value())
	}
	return result, nil
}
