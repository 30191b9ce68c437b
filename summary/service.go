package summary

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tidepool-org/blip/data"
	"github.com/tidepool-org/blip/glucose"
)

// dataWindow covers the longest period and its offset when the last reading is recent
const dataWindow = 61 * 24 * time.Hour

type service struct {
	Repository

	client data.Client
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewService(repo Repository, client data.Client, logger *zap.SugaredLogger) (Service, error) {
	return &service{
		Repository: repo,
		client:     client,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (s *service) Refresh(ctx context.Context, userId string, bounds glucose.BgBounds, loc *time.Location) (*Summary, error) {
	now := s.now()
	start := now.Add(-dataWindow)
	readings, err := s.client.ListReadings(ctx, userId, start, now)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch readings: %w", err)
	}

	// periods are anchored at the last reading, older data may be needed for the offsets
	if last := lastValidReading(readings); last != nil {
		required, err := DataStart(AnchorTime(last, now), loc)
		if err != nil {
			return nil, err
		}
		if required.Before(start) {
			readings, err = s.client.ListReadings(ctx, userId, required, now)
			if err != nil {
				return nil, fmt.Errorf("unable to fetch readings: %w", err)
			}
		}
	}

	summary, err := Calculate(userId, readings, bounds, loc, now)
	if err != nil {
		return nil, err
	}

	if err := s.CreateOrUpdate(ctx, summary); err != nil {
		return nil, err
	}

	s.logger.Infow("refreshed summary", "userId", userId, "readings", len(readings), "timezone", loc.String())
	return s.Get(ctx, userId)
}

func lastValidReading(readings []glucose.Reading) *time.Time {
	var last *time.Time
	for _, r := range glucose.FilterByType(readings, glucose.TypeCBG) {
		if !r.IsValid() {
			continue
		}
		if last == nil || r.Time.After(*last) {
			t := r.Time
			last = &t
		}
	}
	return last
}
