package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputSchema matches every *InputSchemaError via errors.Is.
	ErrInputSchema = errors.New("input schema error")
	// ErrModelInvocation matches every *ModelInvocationError via errors.Is.
	ErrModelInvocation = errors.New("model invocation error")
	// ErrSchemaUndeclared is returned by models that cannot report the
	// feature columns they expect.
	ErrSchemaUndeclared = errors.New("model feature schema not declared")
)

// InputSchemaError reports input that cannot be turned into a complete
// feature row: missing weather fields, a short weather series, or
// out-of-order timestamps. It is raised before the model is called.
type InputSchemaError struct {
	Step   int
	Fields []string
	Reason string
}

func (e *InputSchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "input schema error at step %d", e.Step)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, " (missing fields: %s)", strings.Join(e.Fields, ", "))
	}
	return b.String()
}

func (e *InputSchemaError) Is(target error) bool { return target == ErrInputSchema }

// ModelInvocationError reports a model call that failed or produced a
// non-finite prediction. The whole run is abandoned at Step.
type ModelInvocationError struct {
	Step int
	Err  error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed at step %d: %v", e.Step, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

func (e *ModelInvocationError) Is(target error) bool { return target == ErrModelInvocation }
