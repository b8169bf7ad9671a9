package pets

import "time"

// Species define las especies aceptadas en un anuncio.
// @Enum cat, dog, other
type Species string

const (
	SpeciesCat   Species = "cat"
	SpeciesDog   Species = "dog"
	SpeciesOther Species = "other"
)

func (s Species) Valid() bool {
	switch s {
	case SpeciesCat, SpeciesDog, SpeciesOther:
		return true
	}
	return false
}

// Size define el porte del animal.
// @Enum small, medium, large
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

func (s Size) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	}
	return false
}

// Gender define el sexo del animal.
// @Enum male, female
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Status es el estado del anuncio.
// @Enum available, reserved, adopted
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusAdopted   Status = "adopted"
)

func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusAdopted:
		return true
	}
	return false
}

// Health agrupa los tres flags sanitarios independientes.
type Health struct {
	Vaccinated bool
	Dewormed   bool
	Sterilized bool
}

// Pet es un anuncio publicado por exactamente un shelter.
type Pet struct {
	ID        string
	ShelterID string

	Name      string
	Species   Species
	Breed     string
	AgeMonths int
	Size      Size
	Gender    Gender
	Color     string

	Description string
	Health      Health

	// Orden de inserción relevante (la primera es la portada).
	Photos []string

	Location string
	Status   Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PhotoMode distingue el flujo de creación (reemplaza) del de edición (agrega).
type PhotoMode int

const (
	PhotosReplace PhotoMode = iota
	PhotosAppend
)
