package analysis

import (
	"github.com/google/uuid"

	"github.com/gravelbuild/gravel/pkg/model"
)

// Action is a side-effecting build step registered while constructing
// an analyzed target. The analysis phase only records actions; nothing
// here executes them.
type Action struct {
	// ID is the action's unique identifier.
	ID string

	// Owner is the label of the target that registered the action.
	Owner model.Label

	// Mnemonic is a short verb describing the action, e.g. "Compile".
	Mnemonic string

	// Inputs are the action's input paths.
	Inputs []string

	// Outputs are the action's output paths.
	Outputs []string
}

// NewAction constructs an action with a fresh identifier.
func NewAction(owner model.Label, mnemonic string, inputs, outputs []string) *Action {
	return &Action{
		ID:       uuid.New().String(),
		Owner:    owner,
		Mnemonic: mnemonic,
		Inputs:   inputs,
		Outputs:  outputs,
	}
}

// ActionRecorder accumulates the actions registered during one
// construction attempt. It is attempt-local: if the attempt fails or
// is abandoned, the recorder is dropped and the actions with it.
type ActionRecorder struct {
	actions []*Action
}

// NewActionRecorder creates an empty recorder.
func NewActionRecorder() *ActionRecorder {
	return &ActionRecorder{}
}

// Register records an action.
func (r *ActionRecorder) Register(a *Action) {
	r.actions = append(r.actions, a)
}

// Actions returns the recorded actions in registration order.
func (r *ActionRecorder) Actions() []*Action {
	return r.actions
}

// Len returns the number of recorded actions.
func (r *ActionRecorder) Len() int {
	return len(r.actions)
}
