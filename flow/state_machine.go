package flow

import (
	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/model"
)

// The wizard state machine. Every transition takes the current state and
// returns a new one; the input is never modified, so callers may keep
// older states around (the store hands them to subscribers).
//
// Completion only moves forward: CompleteStep marks a prefix of steps as
// done and the percentage is the target of the furthest completed step.
// GoToStep is navigation and never touches completion.

// Start builds the initial state for def: first step active, nothing
// completed, no collected data.
func Start(def *model.WizardDefinition) *model.WizardState {
	steps := make([]model.WizardStep, len(def.Steps))
	for i, tmpl := range def.Steps {
		steps[i] = model.WizardStep{
			StepTemplate: tmpl,
			IsActive:     i == 0,
		}
	}
	state := &model.WizardState{
		WizardType:    def.Type,
		Steps:         steps,
		CollectedData: make(map[string]map[string]any),
	}
	if len(steps) > 0 {
		state.CurrentStepId = steps[0].Id
	}
	return state
}

// UpdateStepData merges fragment into the data collected for stepId.
// Existing keys missing from fragment are kept.
func UpdateStepData(state *model.WizardState, stepId string, fragment map[string]any) (*model.WizardState, error) {
	if err := checkStep(state, stepId); err != nil {
		return state, err
	}
	next := state.Copy()
	data, ok := next.CollectedData[stepId]
	if !ok {
		data = make(map[string]any, len(fragment))
		next.CollectedData[stepId] = data
	}
	for k, v := range fragment {
		data[k] = v
	}
	return next, nil
}

// CompleteStep marks stepId and every step before it completed and
// activates the following step. Completing the last step completes the
// wizard; the last step then stays active as the terminal step.
func CompleteStep(state *model.WizardState, stepId string) (*model.WizardState, error) {
	if err := checkStep(state, stepId); err != nil {
		return state, err
	}
	next := state.Copy()
	idx := next.StepIndex(stepId)
	last := len(next.Steps) - 1
	for i := range next.Steps {
		step := &next.Steps[i]
		if i <= idx {
			step.IsCompleted = true
		}
		step.IsActive = false
	}
	if idx < last {
		next.Steps[idx+1].IsActive = true
		next.CurrentStepId = next.Steps[idx+1].Id
	} else {
		next.Steps[last].IsActive = true
		next.CurrentStepId = next.Steps[last].Id
	}
	next.CompletionPercentage = completion(next)
	next.IsCompleted = next.Steps[last].IsCompleted
	return next, nil
}

// GoToStep moves the active pointer to stepId. Completion flags,
// percentage and collected data are left alone.
func GoToStep(state *model.WizardState, stepId string) (*model.WizardState, error) {
	if err := checkStep(state, stepId); err != nil {
		return state, err
	}
	next := state.Copy()
	for i := range next.Steps {
		next.Steps[i].IsActive = next.Steps[i].Id == stepId
	}
	next.CurrentStepId = stepId
	return next, nil
}

// Clear discards the wizard.
func Clear() *model.WizardState {
	return nil
}

func completion(state *model.WizardState) int {
	for i := len(state.Steps) - 1; i >= 0; i-- {
		if state.Steps[i].IsCompleted {
			return state.Steps[i].TargetProgress
		}
	}
	return 0
}

func checkStep(state *model.WizardState, stepId string) error {
	if state == nil {
		return api.StaleStepReferenceError{StepId: stepId}
	}
	if state.StepIndex(stepId) < 0 {
		return api.StaleStepReferenceError{WizardType: state.WizardType, StepId: stepId}
	}
	return nil
}
