package metadata

import (
	"errors"
	"sort"

	api "github.com/mohitkumar/loanwizard/api/v1"
	"github.com/mohitkumar/loanwizard/logger"
	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/persistence"
	"go.uber.org/zap"
)

type MetadataService interface {
	GetWizardDefinition(wizardType model.WizardType) (*model.WizardDefinition, error)
	ListWizardDefinitions() ([]model.WizardDefinition, error)
	ValidateDefinition(def model.WizardDefinition) error
	GetDefinitionStorage() DefinitionStorage
}

// MetadataServiceImpl resolves wizard types against operator supplied
// definitions first and the built-in ones second.
type MetadataServiceImpl struct {
	storage DefinitionStorage
	builtin map[model.WizardType]model.WizardDefinition
}

var _ MetadataService = new(MetadataServiceImpl)

func NewMetadataService(storage DefinitionStorage) *MetadataServiceImpl {
	builtin := make(map[model.WizardType]model.WizardDefinition, len(builtinDefinitions))
	for _, def := range builtinDefinitions {
		builtin[def.Type] = def
	}
	return &MetadataServiceImpl{
		storage: storage,
		builtin: builtin,
	}
}

func (s *MetadataServiceImpl) GetWizardDefinition(wizardType model.WizardType) (*model.WizardDefinition, error) {
	if s.storage != nil {
		def, err := s.storage.GetWizardDefinition(wizardType)
		if err == nil {
			return def, nil
		}
		var notFound persistence.NotFoundError
		if !errors.As(err, &notFound) {
			logger.Error("error reading custom wizard definition", zap.String("wizard", string(wizardType)), zap.Error(err))
			return nil, err
		}
	}
	def, ok := s.builtin[wizardType]
	if !ok {
		return nil, api.InvalidWizardTypeError{WizardType: wizardType}
	}
	steps := make([]model.StepTemplate, len(def.Steps))
	copy(steps, def.Steps)
	def.Steps = steps
	return &def, nil
}

func (s *MetadataServiceImpl) ListWizardDefinitions() ([]model.WizardDefinition, error) {
	byType := make(map[model.WizardType]model.WizardDefinition, len(s.builtin))
	for wizardType, def := range s.builtin {
		byType[wizardType] = def
	}
	if s.storage != nil {
		custom, err := s.storage.ListWizardDefinitions()
		if err != nil {
			return nil, err
		}
		for _, def := range custom {
			byType[def.Type] = def
		}
	}
	defs := make([]model.WizardDefinition, 0, len(byType))
	for _, def := range byType {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs, nil
}

func (s *MetadataServiceImpl) ValidateDefinition(def model.WizardDefinition) error {
	return ValidateDefinition(def)
}

func (s *MetadataServiceImpl) GetDefinitionStorage() DefinitionStorage {
	return s.storage
}
