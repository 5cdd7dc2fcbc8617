package workout

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/2beens/dailyfit/internal/exercises"

	"github.com/google/uuid"
)

// Session is one workout, from start to finish. It is active while EndTime is unset.
type Session struct {
	ID                  uuid.UUID     `json:"id"`
	UserID              uuid.UUID     `json:"userId"`
	Date                time.Time     `json:"date"`
	StartTime           time.Time     `json:"startTime"`
	EndTime             *time.Time    `json:"endTime,omitempty"`
	PreWorkoutMobility  *int          `json:"preWorkoutMobility,omitempty"`
	PostWorkoutSoreness *int          `json:"postWorkoutSoreness,omitempty"`
	Notes               *string       `json:"notes,omitempty"`
	CreatedAt           *time.Time    `json:"createdAt,omitempty"`
	ExerciseSets        []ExerciseSet `json:"exerciseSets"`
}

func (s Session) RecordID() uuid.UUID {
	return s.ID
}

func (s Session) IsActive() bool {
	return s.EndTime == nil
}

func (s Session) Duration() (time.Duration, bool) {
	if s.EndTime == nil {
		return 0, false
	}
	return s.EndTime.Sub(s.StartTime), true
}

func (s Session) FormattedDuration() (string, bool) {
	d, ok := s.Duration()
	if !ok {
		return "", false
	}
	secs := int(d.Seconds())
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes), true
	}
	return fmt.Sprintf("%dm", minutes), true
}

// UniqueExercises lists the exercises of the session in first-seen order.
func (s Session) UniqueExercises() []exercises.Exercise {
	seen := make(map[uuid.UUID]bool)
	var unique []exercises.Exercise
	for _, set := range s.ExerciseSets {
		if set.Exercise == nil || seen[set.Exercise.ID] {
			continue
		}
		seen[set.Exercise.ID] = true
		unique = append(unique, *set.Exercise)
	}
	return unique
}

func (s Session) SetsForExercise(exerciseID uuid.UUID) []ExerciseSet {
	var sets []ExerciseSet
	for _, set := range s.ExerciseSets {
		if set.ExerciseID == exerciseID {
			sets = append(sets, set)
		}
	}
	sort.SliceStable(sets, func(i, j int) bool {
		return sets[i].SetNumber < sets[j].SetNumber
	})
	return sets
}

// TrainedMuscleGroups collects the primary then secondary muscle groups of every set,
// without duplicates.
func (s Session) TrainedMuscleGroups() []exercises.MuscleGroup {
	seen := make(map[uuid.UUID]bool)
	var groups []exercises.MuscleGroup
	add := func(list []exercises.MuscleGroup) {
		for _, mg := range list {
			if !seen[mg.ID] {
				seen[mg.ID] = true
				groups = append(groups, mg)
			}
		}
	}
	for _, set := range s.ExerciseSets {
		if set.Exercise == nil {
			continue
		}
		add(set.Exercise.PrimaryMuscleGroups)
		add(set.Exercise.SecondaryMuscleGroups)
	}
	return groups
}

// TotalVolume sums reps x weight over the sets that carry both.
func (s Session) TotalVolume() float64 {
	var total float64
	for _, set := range s.ExerciseSets {
		if v, ok := set.Volume(); ok {
			total += v
		}
	}
	return total
}

type ExerciseSet struct {
	ID                  uuid.UUID           `json:"id"`
	WorkoutSessionID    uuid.UUID           `json:"workoutSessionId"`
	ExerciseID          uuid.UUID           `json:"exerciseId"`
	SetNumber           int                 `json:"setNumber"`
	Reps                *int                `json:"reps,omitempty"`
	WeightKg            *float64            `json:"weightKg,omitempty"`
	EffortRating        *int                `json:"effortRating,omitempty"`
	RestDurationSeconds *int                `json:"restDurationSeconds,omitempty"`
	Notes               *string             `json:"notes,omitempty"`
	CreatedAt           *time.Time          `json:"createdAt,omitempty"`
	Exercise            *exercises.Exercise `json:"exercise,omitempty"`
}

func (s ExerciseSet) Volume() (float64, bool) {
	if s.Reps == nil || s.WeightKg == nil {
		return 0, false
	}
	return float64(*s.Reps) * *s.WeightKg, true
}

// FormattedWeight renders whole kilos without decimals: "60 kg", "62.5 kg".
func (s ExerciseSet) FormattedWeight() (string, bool) {
	if s.WeightKg == nil {
		return "", false
	}
	w := *s.WeightKg
	if w == math.Floor(w) {
		return fmt.Sprintf("%d kg", int64(w)), true
	}
	return strconv.FormatFloat(w, 'f', -1, 64) + " kg", true
}

func (s ExerciseSet) FormattedRest() (string, bool) {
	if s.RestDurationSeconds == nil {
		return "", false
	}
	minutes := *s.RestDurationSeconds / 60
	seconds := *s.RestDurationSeconds % 60
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds), true
	}
	return fmt.Sprintf("%ds", seconds), true
}

// FormatElapsed renders H:MM:SS once past the hour, MM:SS before.
func FormatElapsed(seconds int) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

func FormatRest(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
