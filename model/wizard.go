package model

type WizardType string

const WIZARD_TYPE_MORTGAGE_APPLICATION WizardType = "mortgage_application"
const WIZARD_TYPE_PRE_QUALIFICATION WizardType = "pre_qualification"
const WIZARD_TYPE_DOCUMENT_UPLOAD WizardType = "document_upload"

// StepTemplate is one step of a wizard definition. Fields are JSONPath
// expressions into the remote collected_data that belong to this step.
type StepTemplate struct {
	Id             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	TargetProgress int      `json:"targetProgress"`
	Fields         []string `json:"fields,omitempty"`
}

type WizardDefinition struct {
	Type  WizardType     `json:"type"`
	Title string         `json:"title"`
	Steps []StepTemplate `json:"steps"`
}

func (d *WizardDefinition) StepIndex(stepId string) int {
	for i := range d.Steps {
		if d.Steps[i].Id == stepId {
			return i
		}
	}
	return -1
}

type WizardStep struct {
	StepTemplate
	IsCompleted bool `json:"isCompleted"`
	IsActive    bool `json:"isActive"`
}

type WizardState struct {
	WizardType           WizardType                `json:"wizardType"`
	CurrentStepId        string                    `json:"currentStepId"`
	Steps                []WizardStep              `json:"steps"`
	CollectedData        map[string]map[string]any `json:"collectedData"`
	CompletionPercentage int                       `json:"completionPercentage"`
	IsCompleted          bool                      `json:"isCompleted"`
}

func (s *WizardState) StepIndex(stepId string) int {
	for i := range s.Steps {
		if s.Steps[i].Id == stepId {
			return i
		}
	}
	return -1
}

func (s *WizardState) ActiveStep() *WizardStep {
	for i := range s.Steps {
		if s.Steps[i].IsActive {
			return &s.Steps[i]
		}
	}
	return nil
}

// Copy returns a copy that shares nothing mutable with s. Fragment values
// are copied shallowly.
func (s *WizardState) Copy() *WizardState {
	if s == nil {
		return nil
	}
	c := *s
	c.Steps = make([]WizardStep, len(s.Steps))
	copy(c.Steps, s.Steps)
	c.CollectedData = make(map[string]map[string]any, len(s.CollectedData))
	for stepId, fragment := range s.CollectedData {
		f := make(map[string]any, len(fragment))
		for k, v := range fragment {
			f[k] = v
		}
		c.CollectedData[stepId] = f
	}
	return &c
}
