package models

import (
	"time"

	"github.com/google/uuid"
)

// Persona records which advice persona a user selected. Rows are
// append-only; the application never updates or deletes them.
type Persona struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SelectedAt time.Time `json:"selected_at"`
	CreatedAt  time.Time `json:"created_at"`
}
