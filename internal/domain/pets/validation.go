package pets

import (
	"strings"

	"pet-adoption/internal/apperr"
)

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Invalid("name", "required")
	}
	if !in.Species.Valid() {
		return apperr.Invalid("species", "must be cat, dog or other")
	}
	if in.AgeMonths < 0 {
		return apperr.Invalid("age", "must be >= 0")
	}
	if !in.Size.Valid() {
		return apperr.Invalid("size", "must be small, medium or large")
	}
	if !in.Gender.Valid() {
		return apperr.Invalid("gender", "must be male or female")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperr.Invalid("description", "required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return apperr.Invalid("location", "required")
	}
	return nil
}

// normalizePatch valida campo por campo y devuelve el patch limpio (trim, URLs sin vacíos).
// Un campo presente nunca puede dejar el pet en un estado que Create rechazaría.
func normalizePatch(patch Patch) (Patch, error) {
	out := patch
	required := func(field string, v *string) (*string, error) {
		if v == nil {
			return nil, nil
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			return nil, apperr.Invalid(field, "required")
		}
		return &t, nil
	}
	optional := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}

	var err error
	if out.Name, err = required("name", patch.Name); err != nil {
		return Patch{}, err
	}
	if patch.Species != nil && !patch.Species.Valid() {
		return Patch{}, apperr.Invalid("species", "must be cat, dog or other")
	}
	out.Breed = optional(patch.Breed)
	if patch.AgeMonths != nil && *patch.AgeMonths < 0 {
		return Patch{}, apperr.Invalid("age", "must be >= 0")
	}
	if patch.Size != nil && !patch.Size.Valid() {
		return Patch{}, apperr.Invalid("size", "must be small, medium or large")
	}
	if patch.Gender != nil && !patch.Gender.Valid() {
		return Patch{}, apperr.Invalid("gender", "must be male or female")
	}
	out.Color = optional(patch.Color)
	if out.Description, err = required("description", patch.Description); err != nil {
		return Patch{}, err
	}
	if out.Location, err = required("location", patch.Location); err != nil {
		return Patch{}, err
	}
	// Sin tabla de transiciones: el dueño puede mover el status libremente.
	if patch.Status != nil && !patch.Status.Valid() {
		return Patch{}, apperr.Invalid("status", "must be available, reserved or adopted")
	}
	if patch.Photos != nil {
		urls := cleanURLs(*patch.Photos)
		if urls == nil {
			urls = []string{}
		}
		out.Photos = &urls
	}
	return out, nil
}

// Empty indica que el patch no nombra ningún campo.
func (patch Patch) Empty() bool {
	return patch == Patch{}
}

// Apply copia sobre p solo los campos presentes. No valida: los repos lo
// llaman con un patch ya normalizado.
func (patch Patch) Apply(p Pet) Pet {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Species != nil {
		p.Species = *patch.Species
	}
	if patch.Breed != nil {
		p.Breed = *patch.Breed
	}
	if patch.AgeMonths != nil {
		p.AgeMonths = *patch.AgeMonths
	}
	if patch.Size != nil {
		p.Size = *patch.Size
	}
	if patch.Gender != nil {
		p.Gender = *patch.Gender
	}
	if patch.Color != nil {
		p.Color = *patch.Color
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Vaccinated != nil {
		p.Health.Vaccinated = *patch.Vaccinated
	}
	if patch.Dewormed != nil {
		p.Health.Dewormed = *patch.Dewormed
	}
	if patch.Sterilized != nil {
		p.Health.Sterilized = *patch.Sterilized
	}
	if patch.Location != nil {
		p.Location = *patch.Location
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Photos != nil {
		p.Photos = append([]string{}, (*patch.Photos)...)
	}
	return p
}

// cleanURLs descarta vacíos y conserva el orden. nil si no queda nada.
func cleanURLs(in []string) []string {
	var out []string
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		out = append(out, u)
	}
	return out
}
