package flow

import (
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/util"
)

// RemoteSnapshot is the part of the remote thread state the wizard
// follows.
type RemoteSnapshot struct {
	CollectedData        map[string]any
	CompletionPercentage int
	ApplicationComplete  bool
}

// Reconcile folds a remote snapshot into state. Collected data is split
// into per-step fragments using each step's fields and merged in; steps
// whose target the remote completion has reached are completed. Local
// progress is never rolled back.
func Reconcile(state *model.WizardState, snap RemoteSnapshot) *model.WizardState {
	if state == nil {
		return nil
	}
	next := state
	for _, step := range state.Steps {
		if len(step.Fields) == 0 {
			continue
		}
		fragment := util.ResolveFields(snap.CollectedData, step.Fields)
		if len(fragment) == 0 {
			continue
		}
		next, _ = UpdateStepData(next, step.Id, fragment)
	}

	reached := -1
	if snap.ApplicationComplete {
		reached = len(next.Steps) - 1
	} else if snap.CompletionPercentage > 0 {
		for i, step := range next.Steps {
			if step.TargetProgress <= snap.CompletionPercentage {
				reached = i
			}
		}
	}
	if reached >= 0 && reached > highestCompleted(next) {
		next, _ = CompleteStep(next, next.Steps[reached].Id)
	}
	return next
}

// Phase places the application in its lifecycle.
func Phase(state *model.WizardState, applicationComplete bool) model.ApplicationPhase {
	switch {
	case applicationComplete:
		return model.PHASE_SUBMITTED
	case state == nil:
		return model.PHASE_DISCOVERY
	case state.IsCompleted:
		return model.PHASE_READY_FOR_REVIEW
	case state.CompletionPercentage == 0:
		return model.PHASE_INITIATED
	}
	return model.PHASE_IN_PROGRESS
}

func highestCompleted(state *model.WizardState) int {
	for i := len(state.Steps) - 1; i >= 0; i-- {
		if state.Steps[i].IsCompleted {
			return i
		}
	}
	return -1
}
