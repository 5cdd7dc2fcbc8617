package workout

import (
	"context"
	"math"
	"time"

	"github.com/2beens/dailyfit/internal/telemetry/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ExerciseHistory represents the history of an exercise
// so that, for each day, we get the average weight and reps per set
type ExerciseHistory struct {
	ExerciseID uuid.UUID                   `json:"exerciseId"`
	Stats      map[time.Time]ExerciseStats `json:"stats"`
}

type ExerciseStats struct {
	AvgWeightKg float64 `json:"avgWeightKg"`
	AvgReps     int     `json:"avgReps"`
	Sets        int     `json:"sets"`
	Volume      float64 `json:"volume"`
}

type AvgRestResponse struct {
	// Duration is the average rest between sets over all days
	Duration time.Duration `json:"duration"`
	// DurationPerDay is the average rest between sets for each day
	DurationPerDay map[time.Time]time.Duration `json:"durationPerDay"`
}

type ExercisePercentageInfo struct {
	ExerciseName string  `json:"exerciseName"`
	Sets         int     `json:"sets"`
	Percentage   float64 `json:"percentage"`
}

type sessionsLister interface {
	ListSessions(ctx context.Context, params ListParams) ([]Session, error)
}

// Analyzer computes statistics over finished sessions.
type Analyzer struct {
	repo sessionsLister
}

func NewAnalyzer(repo sessionsLister) *Analyzer {
	return &Analyzer{
		repo: repo,
	}
}

// ExerciseHistory groups the sets of one exercise per day. Sets without a weight count
// towards reps and sets, not towards the average weight.
func (a *Analyzer) ExerciseHistory(
	ctx context.Context,
	params ListParams,
	exerciseID uuid.UUID,
) (_ *ExerciseHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workout.exercise_history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_id", exerciseID.String()))

	sets, err := a.listSets(ctx, params, func(s ExerciseSet) bool {
		return s.ExerciseID == exerciseID
	})
	if err != nil {
		return nil, err
	}

	history := &ExerciseHistory{
		ExerciseID: exerciseID,
		Stats:      make(map[time.Time]ExerciseStats),
	}

	for day, daySets := range setsPerDay(sets) {
		var totalWeight, volume float64
		var totalReps, weighted int
		for _, s := range daySets {
			if s.Reps != nil {
				totalReps += *s.Reps
			}
			if s.WeightKg != nil {
				totalWeight += *s.WeightKg
				weighted++
			}
			if v, ok := s.Volume(); ok {
				volume += v
			}
		}
		stats := ExerciseStats{
			AvgReps: totalReps / len(daySets),
			Sets:    len(daySets),
			Volume:  roundTwoDecimals(volume),
		}
		if weighted > 0 {
			stats.AvgWeightKg = roundTwoDecimals(totalWeight / float64(weighted))
		}
		history.Stats[day] = stats
	}

	return history, nil
}

// AvgRest averages the recorded rest before each set, per day and over all days.
// A zero exerciseID takes every exercise into account.
func (a *Analyzer) AvgRest(
	ctx context.Context,
	params ListParams,
	exerciseID uuid.UUID,
) (_ *AvgRestResponse, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workout.avg_rest")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	sets, err := a.listSets(ctx, params, func(s ExerciseSet) bool {
		if s.RestDurationSeconds == nil {
			return false
		}
		return exerciseID == uuid.Nil || s.ExerciseID == exerciseID
	})
	if err != nil {
		return nil, err
	}

	resp := &AvgRestResponse{
		DurationPerDay: make(map[time.Time]time.Duration),
	}
	for day, daySets := range setsPerDay(sets) {
		var total time.Duration
		for _, s := range daySets {
			total += time.Duration(*s.RestDurationSeconds) * time.Second
		}
		resp.DurationPerDay[day] = total / time.Duration(len(daySets))
	}

	if len(resp.DurationPerDay) == 0 {
		return resp, nil
	}

	for _, d := range resp.DurationPerDay {
		resp.Duration += d
	}
	resp.Duration /= time.Duration(len(resp.DurationPerDay))

	return resp, nil
}

// ExercisePercentages returns the share of sets per exercise. With a muscle group id only
// exercises training that group are counted.
func (a *Analyzer) ExercisePercentages(
	ctx context.Context,
	params ListParams,
	muscleGroupID uuid.UUID,
) (_ map[uuid.UUID]ExercisePercentageInfo, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.workout.exercise_percentages")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	sets, err := a.listSets(ctx, params, func(s ExerciseSet) bool {
		if muscleGroupID == uuid.Nil {
			return true
		}
		return s.Exercise != nil && s.Exercise.TrainsMuscleGroup(muscleGroupID)
	})
	if err != nil {
		return nil, err
	}

	exercise2info := make(map[uuid.UUID]ExercisePercentageInfo)
	for _, s := range sets {
		info := exercise2info[s.ExerciseID]
		info.Sets++
		if s.Exercise != nil {
			info.ExerciseName = s.Exercise.Name
		}
		exercise2info[s.ExerciseID] = info
	}
	for id, info := range exercise2info {
		// leave only 2 decimals
		info.Percentage = roundTwoDecimals(float64(info.Sets) / float64(len(sets)) * 100)
		exercise2info[id] = info
	}

	return exercise2info, nil
}

func (a *Analyzer) listSets(ctx context.Context, params ListParams, keep func(s ExerciseSet) bool) ([]ExerciseSet, error) {
	// statistics run over the whole range, never over a page
	params.Page, params.Size = 0, 0
	sessions, err := a.repo.ListSessions(ctx, params)
	if err != nil {
		return nil, err
	}

	var sets []ExerciseSet
	for _, session := range sessions {
		for _, s := range session.ExerciseSets {
			if !keep(s) {
				continue
			}
			if s.CreatedAt == nil {
				date := session.Date
				s.CreatedAt = &date
			}
			sets = append(sets, s)
		}
	}
	return sets, nil
}

func setsPerDay(sets []ExerciseSet) map[time.Time][]ExerciseSet {
	day2sets := make(map[time.Time][]ExerciseSet)
	for _, s := range sets {
		day := s.CreatedAt.UTC().Truncate(24 * time.Hour)
		day2sets[day] = append(day2sets[day], s)
	}
	return day2sets
}

func roundTwoDecimals(v float64) float64 {
	return math.Round(v*100) / 100
}
