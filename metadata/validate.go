package metadata

import (
	"fmt"

	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/util"
)

func ValidateDefinition(def model.WizardDefinition) error {
	invalid := func(format string, args ...any) error {
		return api.DefinitionValidationError{WizardType: def.Type, Message: fmt.Sprintf(format, args...)}
	}
	if def.Type == "" {
		return invalid("wizard type is empty")
	}
	if len(def.Steps) == 0 {
		return invalid("wizard has no steps")
	}
	ids := make(map[string]struct{}, len(def.Steps))
	prev := 0
	for i, step := range def.Steps {
		if step.Id == "" {
			return invalid("step %d has no id", i)
		}
		if _, ok := ids[step.Id]; ok {
			return invalid("step id %s is duplicate", step.Id)
		}
		ids[step.Id] = struct{}{}
		if step.TargetProgress < 1 || step.TargetProgress > 100 {
			return invalid("step %s target progress %d outside 1-100", step.Id, step.TargetProgress)
		}
		if step.TargetProgress <= prev {
			return invalid("step %s target progress %d is not above %d", step.Id, step.TargetProgress, prev)
		}
		prev = step.TargetProgress
		for _, field := range step.Fields {
			if err := util.ValidateFieldPath(field); err != nil {
				return invalid("step %s: %v", step.Id, err)
			}
		}
	}
	if prev != 100 {
		return invalid("last step target progress must be 100, got %d", prev)
	}
	return nil
}
