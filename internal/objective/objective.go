// Package objective evaluates tuning objectives written as Starlark expressions.
//
// An objective sees the pooled evaluation metrics of one trial as predeclared
// names (precision, recall, f1, detections, aligned, waves_hit, waves_total)
// and must produce an int or float score, e.g. "0.7*recall + 0.3*precision".
package objective

import (
	"fmt"
	"math"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/AmalBilal1/covid19-anomaly-detection/pkg/core"
)

// Default is the objective used when none is configured.
const Default = "f1"

// sample is a perfect single-wave evaluation used to type-check expressions.
var sample = core.Evaluation{Detections: 1, Aligned: 1, WavesHit: 1, WavesTotal: 1, Precision: 1, Recall: 1, F1: 1}

// maxSteps bounds a single evaluation.
const maxSteps = 100_000

// Objective is a parsed scoring expression. It is safe for concurrent use.
type Objective struct {
	expr string
	opts *syntax.FileOptions
}

// New parses expr and checks it against a sample evaluation, so syntax errors
// and unknown names surface before any trial runs.
func New(expr string) (*Objective, error) {
	if expr == "" {
		expr = Default
	}
	o := &Objective{expr: expr, opts: &syntax.FileOptions{}}

	if _, err := o.opts.ParseExpr("objective", expr, 0); err != nil {
		return nil, &EvalError{Expr: expr, Message: err.Error()}
	}
	if _, err := o.Score(sample); err != nil {
		return nil, err
	}
	return o, nil
}

// String returns the expression source.
func (o *Objective) String() string {
	return o.expr
}

// Score evaluates the objective for one evaluation.
func (o *Objective) Score(ev core.Evaluation) (float64, error) {
	thread := &starlark.Thread{
		Name:  "objective",
		Print: func(_ *starlark.Thread, _ string) {},
	}
	thread.SetMaxExecutionSteps(maxSteps)

	result, err := starlark.EvalOptions(o.opts, thread, "objective", o.expr, Predeclared(ev))
	if err != nil {
		return 0, &EvalError{Expr: o.expr, Message: err.Error()}
	}

	var score float64
	switch v := result.(type) {
	case starlark.Float:
		score = float64(v)
	case starlark.Int:
		score, _ = starlark.AsFloat(v)
	default:
		return 0, &EvalError{Expr: o.expr, Message: fmt.Sprintf("objective must be an int or float, got %s", result.Type())}
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, &EvalError{Expr: o.expr, Message: fmt.Sprintf("objective must be finite, got %v", score)}
	}
	return score, nil
}

// Predeclared returns the names visible to an objective expression.
func Predeclared(ev core.Evaluation) starlark.StringDict {
	return starlark.StringDict{
		"precision":   starlark.Float(ev.Precision),
		"recall":      starlark.Float(ev.Recall),
		"f1":          starlark.Float(ev.F1),
		"detections":  starlark.MakeInt(ev.Detections),
		"aligned":     starlark.MakeInt(ev.Aligned),
		"waves_hit":   starlark.MakeInt(ev.WavesHit),
		"waves_total": starlark.MakeInt(ev.WavesTotal),
	}
}

// EvalError represents an error while parsing or evaluating an objective.
type EvalError struct {
	Expr    string
	Message string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("objective %q: %s", e.Expr, e.Message)
}
