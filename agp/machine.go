package agp

import (
	"fmt"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/tidepool-org/blip/errors"
)

type State string

const (
	StateInitialized      State = "initialized"
	StateCleared          State = "cleared"
	StatePatientLoaded    State = "patientLoaded"
	StateDataProcessed    State = "dataProcessed"
	StateImagesGenerated  State = "imagesGenerated"
	StateNoPatientData    State = "noPatientData"
	StateInsufficientData State = "insufficientData"
)

var states = []State{
	StateInitialized,
	StateCleared,
	StatePatientLoaded,
	StateDataProcessed,
	StateImagesGenerated,
	StateNoPatientData,
	StateInsufficientData,
}

type Trigger string

const (
	TriggerLoadPatient          Trigger = "loadPatient"
	TriggerProcessData          Trigger = "processData"
	TriggerFindNoData           Trigger = "findNoData"
	TriggerFindInsufficientData Trigger = "findInsufficientData"
	TriggerGenerateImages       Trigger = "generateImages"
	TriggerClear                Trigger = "clear"
)

const triggerAttributeKey = "trigger"

var (
	ErrInvalidTransition = fmt.Errorf("%w: invalid agp state transition", errors.Conflict)
	ErrStalePatient      = fmt.Errorf("%w: patient is no longer active", errors.Conflict)
)

type transition struct {
	from    State
	trigger Trigger
	to      State
}

var transitions = []transition{
	{StateInitialized, TriggerLoadPatient, StatePatientLoaded},
	{StateCleared, TriggerLoadPatient, StatePatientLoaded},
	{StatePatientLoaded, TriggerProcessData, StateDataProcessed},
	{StatePatientLoaded, TriggerFindNoData, StateNoPatientData},
	{StatePatientLoaded, TriggerFindInsufficientData, StateInsufficientData},
	{StateDataProcessed, TriggerGenerateImages, StateImagesGenerated},
}

func stateHash(s State) State {
	return s
}

func newTransitionGraph() (graph.Graph[State, State], error) {
	g := graph.New(stateHash, graph.Directed())
	for _, s := range states {
		if err := g.AddVertex(s); err != nil {
			return nil, err
		}
	}

	all := append([]transition(nil), transitions...)
	for _, s := range states {
		if s != StateCleared {
			all = append(all, transition{s, TriggerClear, StateCleared})
		}
	}
	for _, t := range all {
		if err := g.AddEdge(t.from, t.to, graph.EdgeAttribute(triggerAttributeKey, string(t.trigger))); err != nil {
			return nil, fmt.Errorf("unable to add transition %s -%s-> %s: %w", t.from, t.trigger, t.to, err)
		}
	}
	return g, nil
}

// Machine tracks the AGP generation state of the active patient
type Machine struct {
	mu           sync.Mutex
	transitions  map[State]map[State]graph.Edge[State]
	state        State
	patientId    string
	stateHistory []State
}

func NewMachine() (*Machine, error) {
	g, err := newTransitionGraph()
	if err != nil {
		return nil, err
	}
	adjacencyMap, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	return &Machine{
		transitions:  adjacencyMap,
		state:        StateInitialized,
		stateHistory: []State{StateInitialized},
	}, nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) PatientId() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patientId
}

// History returns every state the machine has been in, oldest first
func (m *Machine) History() []State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]State(nil), m.stateHistory...)
}

// IsActive reports whether patientId is the patient currently loaded
func (m *Machine) IsActive(patientId string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.patientId != "" && m.patientId == patientId
}

// Can reports whether trigger is allowed in the current state
func (m *Machine) Can(trigger Trigger) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.target(trigger)
	return ok
}

// LoadPatient makes patientId the active patient
func (m *Machine) LoadPatient(patientId string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fire(TriggerLoadPatient); err != nil {
		return err
	}
	m.patientId = patientId
	return nil
}

// Clear forgets the active patient. Clearing a cleared machine is a no-op.
func (m *Machine) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCleared {
		_ = m.fire(TriggerClear)
	}
	m.patientId = ""
}

// Fire applies trigger on behalf of patientId. Triggers for a patient that is
// no longer active are rejected with ErrStalePatient.
func (m *Machine) Fire(patientId string, trigger Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.patientId == "" || m.patientId != patientId {
		return fmt.Errorf("%w: %s", ErrStalePatient, patientId)
	}
	return m.fire(trigger)
}

func (m *Machine) fire(trigger Trigger) error {
	next, ok := m.target(trigger)
	if !ok {
		return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, trigger, m.state)
	}
	m.state = next
	m.stateHistory = append(m.stateHistory, next)
	return nil
}

func (m *Machine) target(trigger Trigger) (State, bool) {
	for to, edge := range m.transitions[m.state] {
		if edge.Properties.Attributes[triggerAttributeKey] == string(trigger) {
			return to, true
		}
	}
	return "", false
}
