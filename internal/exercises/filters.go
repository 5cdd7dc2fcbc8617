package exercises

import (
	"strings"

	"github.com/google/uuid"
)

func FilterByMuscleGroup(list []Exercise, muscleGroupID uuid.UUID) []Exercise {
	return filter(list, func(e Exercise) bool {
		return e.TrainsMuscleGroup(muscleGroupID)
	})
}

func FilterByMovementPattern(list []Exercise, pattern MovementPattern) []Exercise {
	return filter(list, func(e Exercise) bool {
		return e.MovementPattern != nil && *e.MovementPattern == pattern
	})
}

func FilterByEquipment(list []Exercise, equipmentID uuid.UUID) []Exercise {
	return filter(list, func(e Exercise) bool {
		return e.UsesEquipment(equipmentID)
	})
}

// Search matches the query case-insensitively against name and instructions.
// An empty query matches everything.
func Search(list []Exercise, query string) []Exercise {
	if query == "" {
		return list
	}
	q := strings.ToLower(query)
	return filter(list, func(e Exercise) bool {
		if strings.Contains(strings.ToLower(e.Name), q) {
			return true
		}
		return e.Instructions != nil && strings.Contains(strings.ToLower(*e.Instructions), q)
	})
}

func filter(list []Exercise, keep func(Exercise) bool) []Exercise {
	filtered := make([]Exercise, 0, len(list))
	for _, e := range list {
		if keep(e) {
			filtered = append(filtered, e)
		}
	}
	return filtered
}
