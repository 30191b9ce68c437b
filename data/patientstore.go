package data

import (
	"slices"
	"sync"

	"github.com/tidepool-org/blip/glucose"
)

// PatientStore holds the readings of a single patient. Loading another
// patient replaces the previous data, reads for any other patient miss.
type PatientStore struct {
	mu        sync.RWMutex
	patientId string
	readings  []glucose.Reading
	loaded    bool
}

func NewPatientStore() *PatientStore {
	return &PatientStore{}
}

func (p *PatientStore) Load(patientId string, readings []glucose.Reading) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.patientId = patientId
	p.readings = slices.Clone(readings)
	p.loaded = true
}

func (p *PatientStore) Readings(patientId string) ([]glucose.Reading, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.loaded || p.patientId != patientId {
		return nil, false
	}
	return slices.Clone(p.readings), true
}

func (p *PatientStore) PatientId() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.patientId
}

func (p *PatientStore) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.patientId = ""
	p.readings = nil
	p.loaded = false
}
