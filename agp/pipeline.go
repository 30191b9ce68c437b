package agp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"
	"github.com/mohae/deepcopy"
	"go.uber.org/zap"

	"github.com/tidepool-org/blip/data"
	"github.com/tidepool-org/blip/glucose"
	"github.com/tidepool-org/blip/stats"
)

type step int

const (
	stepFetchData step = iota
	stepProcessData
	stepGenerateImages
)

// Pipeline generates the AGP report of one patient at a time. Loading another
// patient while data is in flight makes the pending result stale, it is
// discarded instead of being applied to the new patient.
type Pipeline struct {
	machine  *Machine
	store    *data.PatientStore
	client   data.Client
	renderer Renderer
	logger   *zap.SugaredLogger

	mu      sync.Mutex
	request Request
	report  *Report
}

func NewPipeline(client data.Client, renderer Renderer, logger *zap.SugaredLogger) (*Pipeline, error) {
	machine, err := NewMachine()
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		machine:  machine,
		store:    data.NewPatientStore(),
		client:   client,
		renderer: renderer,
		logger:   logger,
	}, nil
}

func (p *Pipeline) State() State {
	return p.machine.State()
}

func (p *Pipeline) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.machine.Clear()
	p.store.Clear()
	p.request = Request{}
	p.report = nil
}

// LoadPatient activates the patient of the request, clearing any previous patient first
func (p *Pipeline) LoadPatient(request Request) error {
	if request.PatientId == "" {
		return fmt.Errorf("%w: patient id is required", ErrInvalidTransition)
	}
	if err := request.Options.Bounds.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.machine.State() != StateInitialized {
		p.machine.Clear()
		p.store.Clear()
	}
	if err := p.machine.LoadPatient(request.PatientId); err != nil {
		return err
	}

	p.request = Request{
		PatientId: request.PatientId,
		Period:    request.Period,
		Options:   deepcopy.Copy(request.Options).(Options),
	}
	p.report = &Report{
		Id:          uuid.NewString(),
		PatientId:   request.PatientId,
		State:       StatePatientLoaded,
		Period:      request.Period,
		Bounds:      request.Options.Bounds,
		Images:      map[ImageType]Image{},
		CreatedTime: time.Now(),
	}
	return nil
}

// FetchData loads the readings of the active patient into the patient store
func (p *Pipeline) FetchData(ctx context.Context) error {
	p.mu.Lock()
	request := p.request
	p.mu.Unlock()

	if !p.machine.IsActive(request.PatientId) {
		return fmt.Errorf("%w: %s", ErrStalePatient, request.PatientId)
	}

	readings, err := p.client.ListReadings(ctx, request.PatientId, request.Period.Start, request.Period.End)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.machine.IsActive(request.PatientId) || p.request.PatientId != request.PatientId {
		p.logger.Infow("discarding readings of inactive patient", "patientId", request.PatientId)
		return fmt.Errorf("%w: %s", ErrStalePatient, request.PatientId)
	}
	p.store.Load(request.PatientId, readings)
	return nil
}

// ProcessData aggregates the stored readings and moves the machine to the
// processed, no data or insufficient data state
func (p *Pipeline) ProcessData() (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	request := p.request
	readings, ok := p.store.Readings(request.PatientId)
	if !ok {
		return p.machine.State(), fmt.Errorf("%w: %s", ErrStalePatient, request.PatientId)
	}

	summary, err := stats.Compute(readings, request.Options.Bounds, request.Period)
	if err != nil {
		return p.machine.State(), err
	}

	trigger := TriggerProcessData
	switch {
	case !summary.HasData():
		trigger = TriggerFindNoData
	case summary.InsufficientData:
		trigger = TriggerFindInsufficientData
	}
	if err := p.machine.Fire(request.PatientId, trigger); err != nil {
		return p.machine.State(), err
	}

	p.report.Summary = summary
	if trigger == TriggerProcessData {
		inPeriod := request.Period.Filter(readings)
		p.report.Percentiles = stats.AGPPercentiles(inPeriod, request.Options.Bounds.Units, request.Period.Location)
		p.report.Daily, err = dailyProfiles(inPeriod, request)
		if err != nil {
			return p.machine.State(), err
		}
	}
	p.report.State = p.machine.State()
	return p.report.State, nil
}

// GenerateImages renders the requested images of a processed report
func (p *Pipeline) GenerateImages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	request := p.request
	images := make(map[ImageType]Image, len(request.Options.Images))
	for _, imageType := range request.Options.Images {
		png, err := p.renderer.Render(imageType, p.report)
		if errors.Is(err, ErrNothingToRender) {
			p.logger.Debugw("skipping empty image", "patientId", request.PatientId, "image", imageType)
			continue
		} else if err != nil {
			return fmt.Errorf("unable to render %s: %w", imageType, err)
		}
		images[imageType] = Image{
			Id:          uuid.NewString(),
			ContentType: pngContentType,
			Data:        png,
		}
	}

	if err := p.machine.Fire(request.PatientId, TriggerGenerateImages); err != nil {
		return err
	}
	p.report.Images = images
	p.report.State = p.machine.State()
	return nil
}

// Report returns the report of the active patient
func (p *Pipeline) Report() *Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// Run loads the patient and drives the pipeline until it settles
func (p *Pipeline) Run(ctx context.Context, request Request) (*Report, error) {
	if err := p.LoadPatient(request); err != nil {
		return nil, err
	}

	steps := queue.New()
	steps.Add(stepFetchData)
	for steps.Length() > 0 {
		switch steps.Remove().(step) {
		case stepFetchData:
			if err := p.FetchData(ctx); err != nil {
				return nil, err
			}
			steps.Add(stepProcessData)
		case stepProcessData:
			state, err := p.ProcessData()
			if err != nil {
				return nil, err
			}
			if state == StateDataProcessed && len(request.Options.Images) > 0 {
				steps.Add(stepGenerateImages)
			}
		case stepGenerateImages:
			if err := p.GenerateImages(); err != nil {
				return nil, err
			}
		}
	}

	p.logger.Infow("generated agp report", "patientId", request.PatientId, "state", p.State())
	return p.Report(), nil
}

func dailyProfiles(readings []glucose.Reading, request Request) ([]DailyProfile, error) {
	buckets := stats.BucketInLocation(readings, request.Period.Location)
	profiles := make([]DailyProfile, 0, len(buckets))
	for date, dayReadings := range buckets {
		counts, err := stats.Aggregate(dayReadings, request.Options.Bounds)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, DailyProfile{
			Date:        date,
			TimeInRange: counts,
			Readings:    dayReadings,
		})
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Date < profiles[j].Date
	})
	return profiles, nil
}
