package equipment

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeBarbell         Type = "barbell"
	TypeDumbbell        Type = "dumbbell"
	TypeKettlebell      Type = "kettlebell"
	TypeMachine         Type = "machine"
	TypeCable           Type = "cable"
	TypeCableAttachment Type = "cableAttachment"
	TypeBodyweight      Type = "bodyweight"
	TypeResistanceBand  Type = "resistanceBand"
	TypeOther           Type = "other"
)

var displayNames = map[Type]string{
	TypeBarbell:         "Barbell",
	TypeDumbbell:        "Dumbbell",
	TypeKettlebell:      "Kettlebell",
	TypeMachine:         "Machine",
	TypeCable:           "Cable",
	TypeCableAttachment: "Cable Attachment",
	TypeBodyweight:      "Bodyweight",
	TypeResistanceBand:  "Resistance Band",
	TypeOther:           "Other",
}

func AllTypes() []Type {
	return []Type{
		TypeBarbell,
		TypeDumbbell,
		TypeKettlebell,
		TypeMachine,
		TypeCable,
		TypeCableAttachment,
		TypeBodyweight,
		TypeResistanceBand,
		TypeOther,
	}
}

func (t Type) IsValid() bool {
	_, ok := displayNames[t]
	return ok
}

func (t Type) DisplayName() string {
	if name, ok := displayNames[t]; ok {
		return name
	}
	return string(t)
}

// Equipment is a piece of gear a user has access to. Records with a nil UserID are shared
// with every user.
type Equipment struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"userId"`
	Name           string            `json:"name"`
	Type           Type              `json:"type"`
	Specifications map[string]string `json:"specifications,omitempty"`
	IsAvailable    bool              `json:"isAvailable"`
	GymLocation    *string           `json:"gymLocation,omitempty"`
	CreatedAt      *time.Time        `json:"createdAt,omitempty"`
}

func (e Equipment) RecordID() uuid.UUID {
	return e.ID
}

func (e Equipment) IsShared() bool {
	return e.UserID == uuid.Nil
}

func (e Equipment) VisibleTo(userID uuid.UUID) bool {
	return e.IsShared() || e.UserID == userID
}

func New(userID uuid.UUID, name string, t Type, specs map[string]string) Equipment {
	now := time.Now()
	return Equipment{
		ID:             uuid.New(),
		UserID:         userID,
		Name:           name,
		Type:           t,
		Specifications: specs,
		IsAvailable:    true,
		CreatedAt:      &now,
	}
}

func FilterByType(list []Equipment, t Type) []Equipment {
	var filtered []Equipment
	for _, e := range list {
		if e.Type == t {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func GroupByType(list []Equipment) map[Type][]Equipment {
	grouped := make(map[Type][]Equipment)
	for _, e := range list {
		grouped[e.Type] = append(grouped[e.Type], e)
	}
	return grouped
}

// SeedID derives a stable id for seeded records, so restarts do not change them.
func SeedID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("dailyfit/equipment/"+name))
}

// Seed is the shared starter gear every user sees.
func Seed() []Equipment {
	seed := func(name string, t Type, specs map[string]string) Equipment {
		return Equipment{
			ID:             SeedID(name),
			Name:           name,
			Type:           t,
			Specifications: specs,
			IsAvailable:    true,
		}
	}
	return []Equipment{
		seed("Olympic Barbell", TypeBarbell, map[string]string{"weight": "20kg", "length": "2.2m"}),
		seed("Adjustable Bench", TypeMachine, map[string]string{"positions": "7", "incline": "0-85°"}),
		seed("Dumbbell Set (2.5-25kg)", TypeDumbbell, map[string]string{"increments": "2.5kg", "pairs": "10"}),
		seed("Cable Machine", TypeCable, nil),
		seed("Rope Attachment", TypeCableAttachment, map[string]string{"length": "70cm"}),
	}
}
