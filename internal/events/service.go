package events

import (
	"context"
	"fmt"

	"github.com/2beens/dailyfit/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=events_test

type eventsRepo interface {
	Add(ctx context.Context, event Event) (*Event, error)
	List(ctx context.Context, params ListParams) ([]*Event, error)
	Count(ctx context.Context, params EventParams) (int, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type Service struct {
	repo      eventsRepo
	publisher Publisher
}

// NewService creates the training log service. The publisher is optional.
func NewService(repo eventsRepo, publisher Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
	}
}

// Add stores the event and forwards it to the publisher. A stored event is not rolled
// back when publishing fails; the failure is only logged.
func (s *Service) Add(ctx context.Context, event Event) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.events.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !event.Type.IsValid() {
		return 0, fmt.Errorf("invalid event type: %s", event.Type)
	}

	added, err := s.repo.Add(ctx, event)
	if err != nil {
		return 0, fmt.Errorf("add %s event: %w", event.Type, err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, *added); err != nil {
			log.Errorf("publish %s event %d: %s", added.Type, added.ID, err)
		}
	}

	return added.ID, nil
}

func (s *Service) AddTrainingStart(ctx context.Context, ts TrainingStart) (int, error) {
	return s.Add(ctx, NewTrainingStartEvent(ts))
}

func (s *Service) AddTrainingFinish(ctx context.Context, tf TrainingFinish) (int, error) {
	return s.Add(ctx, NewTrainingFinishEvent(tf))
}

func (s *Service) List(ctx context.Context, params ListParams) (_ []*Event, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.events.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	events, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (s *Service) Count(ctx context.Context, params EventParams) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.events.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	count, err := s.repo.Count(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}
