package exercises

import (
	"strings"
	"time"

	"github.com/2beens/dailyfit/internal/equipment"

	"github.com/google/uuid"
)

type MovementPattern string

const (
	PatternPush      MovementPattern = "push"
	PatternPull      MovementPattern = "pull"
	PatternSquat     MovementPattern = "squat"
	PatternHinge     MovementPattern = "hinge"
	PatternLunge     MovementPattern = "lunge"
	PatternCarry     MovementPattern = "carry"
	PatternRotation  MovementPattern = "rotation"
	PatternIsometric MovementPattern = "isometric"
	PatternComplex   MovementPattern = "complex"
)

var patternDescriptions = map[MovementPattern]string{
	PatternPush:      "Movement that pushes weight away from the body",
	PatternPull:      "Movement that pulls weight toward the body",
	PatternSquat:     "Knee-dominant lower body movement",
	PatternHinge:     "Hip-dominant lower body movement",
	PatternLunge:     "Single-leg knee and hip movement",
	PatternCarry:     "Holding weight while moving",
	PatternRotation:  "Twisting or rotating movement",
	PatternIsometric: "Static hold without movement",
	PatternComplex:   "Combines multiple movement patterns",
}

func AllMovementPatterns() []MovementPattern {
	return []MovementPattern{
		PatternPush,
		PatternPull,
		PatternSquat,
		PatternHinge,
		PatternLunge,
		PatternCarry,
		PatternRotation,
		PatternIsometric,
		PatternComplex,
	}
}

func (p MovementPattern) IsValid() bool {
	_, ok := patternDescriptions[p]
	return ok
}

func (p MovementPattern) DisplayName() string {
	if !p.IsValid() {
		return string(p)
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

func (p MovementPattern) Description() string {
	return patternDescriptions[p]
}

type Exercise struct {
	ID              uuid.UUID        `json:"id"`
	UserID          *uuid.UUID       `json:"userId,omitempty"`
	Name            string           `json:"name"`
	Instructions    *string          `json:"instructions,omitempty"`
	VideoURL        *string          `json:"videoUrl,omitempty"`
	MovementPattern *MovementPattern `json:"movementPattern,omitempty"`
	IsCustom        bool             `json:"isCustom"`
	IsPublic        bool             `json:"isPublic"`
	CreatedAt       *time.Time       `json:"createdAt,omitempty"`

	PrimaryMuscleGroups   []MuscleGroup         `json:"primaryMuscleGroups"`
	SecondaryMuscleGroups []MuscleGroup         `json:"secondaryMuscleGroups"`
	EquipmentOptions      []equipment.Equipment `json:"equipmentOptions"`
}

func (e Exercise) RecordID() uuid.UUID {
	return e.ID
}

func (e Exercise) TrainsMuscleGroup(id uuid.UUID) bool {
	for _, mg := range e.PrimaryMuscleGroups {
		if mg.ID == id {
			return true
		}
	}
	for _, mg := range e.SecondaryMuscleGroups {
		if mg.ID == id {
			return true
		}
	}
	return false
}

func (e Exercise) UsesEquipment(id uuid.UUID) bool {
	for _, eq := range e.EquipmentOptions {
		if eq.ID == id {
			return true
		}
	}
	return false
}

// VisibleTo reports whether the user may see the exercise: public ones, catalog ones
// and the user's own custom exercises.
func (e Exercise) VisibleTo(userID uuid.UUID) bool {
	if e.IsPublic || e.UserID == nil {
		return true
	}
	return *e.UserID == userID
}

func SeedID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("dailyfit/exercise/"+name))
}

func commonExercise(name, instructions string, pattern MovementPattern, primary, secondary []MuscleGroup) Exercise {
	return Exercise{
		ID:                    SeedID(name),
		Name:                  name,
		Instructions:          &instructions,
		MovementPattern:       &pattern,
		IsCustom:              false,
		IsPublic:              true,
		PrimaryMuscleGroups:   primary,
		SecondaryMuscleGroups: secondary,
		EquipmentOptions:      []equipment.Equipment{},
	}
}

// CommonExercises is the starter catalog every user sees.
func CommonExercises() []Exercise {
	return []Exercise{
		commonExercise(
			"Barbell Bench Press",
			"Lie on a flat bench, grip the barbell with hands slightly wider than shoulder-width apart, lower the bar to your chest, then press back up to the starting position.",
			PatternPush,
			mustMuscleGroups("Middle Chest"),
			mustMuscleGroups("Front Delt", "Triceps - Lateral Head"),
		),
		commonExercise(
			"Pull-Up",
			"Hang from a bar with arms fully extended and hands facing away from you. Pull your body up until your chin is above the bar, then lower back down with control.",
			PatternPull,
			mustMuscleGroups("Mid Back"),
			mustMuscleGroups("Biceps - Long Head", "Biceps - Short Head"),
		),
		commonExercise(
			"Barbell Back Squat",
			"Place a barbell on your upper back, feet shoulder-width apart. Bend knees and hips to lower your body until thighs are parallel to the ground, then drive back up to standing.",
			PatternSquat,
			mustMuscleGroups("Quads"),
			mustMuscleGroups("Glutes", "Lower Back"),
		),
		commonExercise(
			"Deadlift",
			"Stand with feet hip-width apart, barbell over mid-foot. Bend at hips and knees, grasp bar, then drive through heels to stand up straight, pulling the bar up along your legs.",
			PatternHinge,
			mustMuscleGroups("Hamstrings", "Glutes"),
			mustMuscleGroups("Lower Back", "Forearms"),
		),
	}
}
