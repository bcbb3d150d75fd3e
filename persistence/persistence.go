package persistence

import (
	"fmt"

	"github.com/mohitkumar/loanwizard/model"
)

type StorageLayerError struct {
	Message string
}

func (e StorageLayerError) Error() string {
	return fmt.Sprintf("storage layer error %s", e.Message)
}

type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Key)
}

const WIZARD_PREFIX string = "WIZARD"

// DefinitionDao stores operator supplied wizard definitions.
type DefinitionDao interface {
	SaveWizardDefinition(def model.WizardDefinition) error
	DeleteWizardDefinition(wizardType model.WizardType) error
	// GetWizardDefinition returns NotFoundError when no definition is stored for wizardType.
	GetWizardDefinition(wizardType model.WizardType) (*model.WizardDefinition, error)
	ListWizardDefinitions() ([]model.WizardDefinition, error)
}
