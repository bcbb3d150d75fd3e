package metadata

import "github.com/mohitkumar/loanwizard/model"

type DefinitionStorage interface {
	SaveWizardDefinition(def model.WizardDefinition) error
	DeleteWizardDefinition(wizardType model.WizardType) error
	GetWizardDefinition(wizardType model.WizardType) (*model.WizardDefinition, error)
	ListWizardDefinitions() ([]model.WizardDefinition, error)
}
