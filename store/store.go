package store

import (
	"sync"

	"github.com/mohitkumar/loanwizard/logger"
	"go.uber.org/zap"
)

type Listener func(State)

// Store owns the application State. Dispatch applies one action at a time
// and notifies listeners, in dispatch order, with a copy of the new state.
// Listeners must not call Dispatch synchronously.
type Store struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextId    int
}

func NewStore() *Store {
	return NewStoreWithState(InitialState())
}

func NewStoreWithState(state State) *Store {
	return &Store{
		state:     state.Copy(),
		listeners: make(map[int]Listener),
	}
}

func (s *Store) Dispatch(a Action) {
	s.Apply(a)
}

// Apply dispatches a and returns copies of the state right before and
// right after it. No other action lands in between.
func (s *Store) Apply(a Action) (State, State) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	before := s.state
	s.state = Reduce(s.state, a)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	after := s.state
	s.mu.Unlock()

	logAction(a, before, after)
	for _, l := range listeners {
		l(after.Copy())
	}
	return before.Copy(), after.Copy()
}

func logAction(a Action, before State, after State) {
	switch a.Type {
	case START_WIZARD:
		if after.Wizard != nil && after.Wizard != before.Wizard {
			logger.Debug("wizard started", zap.String("wizard", string(after.Wizard.WizardType)))
		}
	case UPDATE_WIZARD_STEP, COMPLETE_WIZARD_STEP, GO_TO_WIZARD_STEP:
		if after.Wizard == before.Wizard {
			logger.Debug("ignoring wizard action", zap.String("action", string(a.Type)), zap.String("step", a.StepId))
		}
	}
}

func (s *Store) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Copy()
}

// Subscribe registers l and returns a func removing it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextId
	s.nextId++
	s.listeners[id] = l
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.listeners, id)
		})
	}
}
