package memory

import (
	"sort"
	"sync"

	"github.com/mohitkumar/loanwizard/model"
	"github.com/mohitkumar/loanwizard/persistence"
)

var _ persistence.DefinitionDao = new(definitionDao)

type definitionDao struct {
	mu   sync.RWMutex
	defs map[model.WizardType]model.WizardDefinition
}

func NewDefinitionDao() *definitionDao {
	return &definitionDao{
		defs: make(map[model.WizardType]model.WizardDefinition),
	}
}

func (d *definitionDao) SaveWizardDefinition(def model.WizardDefinition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.defs[def.Type] = copyDefinition(def)
	return nil
}

func (d *definitionDao) DeleteWizardDefinition(wizardType model.WizardType) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.defs, wizardType)
	return nil
}

func (d *definitionDao) GetWizardDefinition(wizardType model.WizardType) (*model.WizardDefinition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.defs[wizardType]
	if !ok {
		return nil, persistence.NotFoundError{Key: string(wizardType)}
	}
	c := copyDefinition(def)
	return &c, nil
}

func (d *definitionDao) ListWizardDefinitions() ([]model.WizardDefinition, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	defs := make([]model.WizardDefinition, 0, len(d.defs))
	for _, def := range d.defs {
		defs = append(defs, copyDefinition(def))
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs, nil
}

func copyDefinition(def model.WizardDefinition) model.WizardDefinition {
	steps := make([]model.StepTemplate, len(def.Steps))
	copy(steps, def.Steps)
	def.Steps = steps
	return def
}
