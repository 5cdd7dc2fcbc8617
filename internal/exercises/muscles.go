package exercises

import (
	"strings"

	"github.com/google/uuid"
)

type MuscleCategory string

const (
	CategoryLegs      MuscleCategory = "legs"
	CategoryBack      MuscleCategory = "back"
	CategoryChest     MuscleCategory = "chest"
	CategoryShoulders MuscleCategory = "shoulders"
	CategoryArms      MuscleCategory = "arms"
	CategoryCore      MuscleCategory = "core"
)

func AllCategories() []MuscleCategory {
	return []MuscleCategory{
		CategoryLegs,
		CategoryBack,
		CategoryChest,
		CategoryShoulders,
		CategoryArms,
		CategoryCore,
	}
}

func (c MuscleCategory) IsValid() bool {
	switch c {
	case CategoryLegs, CategoryBack, CategoryChest, CategoryShoulders, CategoryArms, CategoryCore:
		return true
	}
	return false
}

func (c MuscleCategory) DisplayName() string {
	if !c.IsValid() {
		return string(c)
	}
	return strings.ToUpper(string(c[:1])) + string(c[1:])
}

// Subcategories lists the finer muscle regions shown for a category, in display order.
func (c MuscleCategory) Subcategories() []string {
	var subs []string
	for _, mg := range muscleGroupCatalog {
		if mg.Category == c && mg.Subcategory != nil {
			subs = append(subs, *mg.Subcategory)
		}
	}
	return subs
}

type MuscleGroup struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Category    MuscleCategory `json:"category"`
	Subcategory *string        `json:"subcategory,omitempty"`
}

func muscleGroupID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("dailyfit/muscle-group/"+name))
}

func newMuscleGroup(name string, category MuscleCategory, subcategory string) MuscleGroup {
	if subcategory == "" {
		subcategory = name
	}
	return MuscleGroup{
		ID:          muscleGroupID(name),
		Name:        name,
		Category:    category,
		Subcategory: &subcategory,
	}
}

var muscleGroupCatalog = []MuscleGroup{
	newMuscleGroup("Calves", CategoryLegs, ""),
	newMuscleGroup("Hamstrings", CategoryLegs, ""),
	newMuscleGroup("Quads", CategoryLegs, ""),
	newMuscleGroup("Glutes", CategoryLegs, ""),
	newMuscleGroup("Hip Flexors", CategoryLegs, ""),

	newMuscleGroup("Upper Back", CategoryBack, "Upper Back (Traps/Rhomboids)"),
	newMuscleGroup("Mid Back", CategoryBack, "Mid Back (Lats)"),
	newMuscleGroup("Lower Back", CategoryBack, "Lower Back (Erector Spinae)"),

	newMuscleGroup("Upper Chest", CategoryChest, ""),
	newMuscleGroup("Middle Chest", CategoryChest, ""),
	newMuscleGroup("Lower Chest", CategoryChest, ""),

	newMuscleGroup("Front Delt", CategoryShoulders, ""),
	newMuscleGroup("Side Delt", CategoryShoulders, ""),
	newMuscleGroup("Rear Delt", CategoryShoulders, ""),

	newMuscleGroup("Biceps - Long Head", CategoryArms, ""),
	newMuscleGroup("Biceps - Short Head", CategoryArms, ""),
	newMuscleGroup("Triceps - Long Head", CategoryArms, ""),
	newMuscleGroup("Triceps - Lateral Head", CategoryArms, ""),
	newMuscleGroup("Triceps - Medial Head", CategoryArms, ""),
	newMuscleGroup("Forearms", CategoryArms, ""),

	newMuscleGroup("Abs - Upper", CategoryCore, ""),
	newMuscleGroup("Abs - Lower", CategoryCore, ""),
	newMuscleGroup("Obliques", CategoryCore, ""),
	newMuscleGroup("Transverse Abdominis", CategoryCore, ""),
}

// MuscleGroups returns a copy of the predefined catalog.
func MuscleGroups() []MuscleGroup {
	groups := make([]MuscleGroup, len(muscleGroupCatalog))
	copy(groups, muscleGroupCatalog)
	return groups
}

func GroupedByCategory() map[MuscleCategory][]MuscleGroup {
	grouped := make(map[MuscleCategory][]MuscleGroup)
	for _, mg := range muscleGroupCatalog {
		grouped[mg.Category] = append(grouped[mg.Category], mg)
	}
	return grouped
}

func MuscleGroupByName(name string) (MuscleGroup, bool) {
	for _, mg := range muscleGroupCatalog {
		if strings.EqualFold(mg.Name, name) {
			return mg, true
		}
	}
	return MuscleGroup{}, false
}

func MuscleGroupByID(id uuid.UUID) (MuscleGroup, bool) {
	for _, mg := range muscleGroupCatalog {
		if mg.ID == id {
			return mg, true
		}
	}
	return MuscleGroup{}, false
}

func mustMuscleGroups(names ...string) []MuscleGroup {
	groups := make([]MuscleGroup, 0, len(names))
	for _, n := range names {
		mg, ok := MuscleGroupByName(n)
		if !ok {
			panic("unknown muscle group: " + n)
		}
		groups = append(groups, mg)
	}
	return groups
}
