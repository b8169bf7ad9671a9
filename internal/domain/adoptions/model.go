package adoptions

import "time"

// Status es el estado de un adoption request.
// approved y rejected son terminales.
// @Enum pending, approved, rejected
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Request es el interés de un adopter en un pet.
// El shelter dueño se resuelve siempre a través del pet.
type Request struct {
	ID        string
	PetID     string
	AdopterID string
	Status    Status
	Message   string

	CreatedAt time.Time
	UpdatedAt time.Time
}
