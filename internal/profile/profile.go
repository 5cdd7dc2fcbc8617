package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderNonBinary      Gender = "non_binary"
	GenderPreferNotToSay Gender = "prefer_not_to_say"
)

func AllGenders() []Gender {
	return []Gender{GenderMale, GenderFemale, GenderNonBinary, GenderPreferNotToSay}
}

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderNonBinary, GenderPreferNotToSay:
		return true
	}
	return false
}

func (g Gender) DisplayName() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	case GenderNonBinary:
		return "Non-binary"
	case GenderPreferNotToSay:
		return "Prefer not to say"
	}
	return string(g)
}

type FitnessGoal string

const (
	GoalStrength       FitnessGoal = "strength"
	GoalHypertrophy    FitnessGoal = "hypertrophy"
	GoalEndurance      FitnessGoal = "endurance"
	GoalGeneralFitness FitnessGoal = "general_fitness"
)

func AllFitnessGoals() []FitnessGoal {
	return []FitnessGoal{GoalStrength, GoalHypertrophy, GoalEndurance, GoalGeneralFitness}
}

func (g FitnessGoal) IsValid() bool {
	return g.Description() != ""
}

func (g FitnessGoal) DisplayName() string {
	switch g {
	case GoalStrength:
		return "Strength"
	case GoalHypertrophy:
		return "Hypertrophy"
	case GoalEndurance:
		return "Endurance"
	case GoalGeneralFitness:
		return "General Fitness"
	}
	return string(g)
}

func (g FitnessGoal) Description() string {
	switch g {
	case GoalStrength:
		return "Build maximum strength with low to medium rep ranges"
	case GoalHypertrophy:
		return "Increase muscle size with medium rep ranges"
	case GoalEndurance:
		return "Improve muscular endurance with high rep ranges"
	case GoalGeneralFitness:
		return "Overall fitness improvement with varied training"
	}
	return ""
}

type ExperienceLevel string

const (
	LevelBeginner     ExperienceLevel = "beginner"
	LevelIntermediate ExperienceLevel = "intermediate"
	LevelAdvanced     ExperienceLevel = "advanced"
)

func AllExperienceLevels() []ExperienceLevel {
	return []ExperienceLevel{LevelBeginner, LevelIntermediate, LevelAdvanced}
}

func (l ExperienceLevel) IsValid() bool {
	return l.Description() != ""
}

func (l ExperienceLevel) DisplayName() string {
	switch l {
	case LevelBeginner:
		return "Beginner"
	case LevelIntermediate:
		return "Intermediate"
	case LevelAdvanced:
		return "Advanced"
	}
	return string(l)
}

func (l ExperienceLevel) Description() string {
	switch l {
	case LevelBeginner:
		return "Less than 1 year of consistent training"
	case LevelIntermediate:
		return "1-3 years of consistent training"
	case LevelAdvanced:
		return "More than 3 years of consistent training"
	}
	return ""
}

// UserProfile shares its ID with the user it describes.
type UserProfile struct {
	ID              uuid.UUID        `json:"id"`
	Age             *int             `json:"age,omitempty"`
	Gender          *Gender          `json:"gender,omitempty"`
	HeightCm        *float64         `json:"heightCm,omitempty"`
	WeightKg        *float64         `json:"weightKg,omitempty"`
	FitnessGoal     *FitnessGoal     `json:"fitnessGoal,omitempty"`
	ExperienceLevel *ExperienceLevel `json:"experienceLevel,omitempty"`
	CreatedAt       *time.Time       `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time       `json:"updatedAt,omitempty"`
}

func (p UserProfile) RecordID() uuid.UUID {
	return p.ID
}

var ErrInvalidProfile = errors.New("invalid profile")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidProfile, fmt.Sprintf(format, args...))
}

func (p UserProfile) Validate() error {
	if p.Age != nil && (*p.Age <= 0 || *p.Age >= 130) {
		return invalid("age must be between 1 and 129")
	}
	if p.HeightCm != nil && *p.HeightCm <= 0 {
		return invalid("height must be positive")
	}
	if p.WeightKg != nil && *p.WeightKg <= 0 {
		return invalid("weight must be positive")
	}
	if p.Gender != nil && !p.Gender.IsValid() {
		return invalid("unknown gender [%s]", *p.Gender)
	}
	if p.FitnessGoal != nil && !p.FitnessGoal.IsValid() {
		return invalid("unknown fitness goal [%s]", *p.FitnessGoal)
	}
	if p.ExperienceLevel != nil && !p.ExperienceLevel.IsValid() {
		return invalid("unknown experience level [%s]", *p.ExperienceLevel)
	}
	return nil
}
