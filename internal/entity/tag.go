package entity

import (
	"time"

	"github.com/google/uuid"
)

// Tag represents a free-form recipe tag.
type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
