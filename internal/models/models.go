// package models defines the data model for the rights management service
package models

import (
	"time"
)

// Entity is the base interface for all persisted records in the catalog.
// Implementations include Collaborator, Track, Album, and Session.
type Entity interface {
	Validate() error // Validate checks if the record's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific entity types.
type Repository[T Entity] interface {
	Create(model T) error                      // Create inserts a new record into the database
	Get(id string) (T, error)                  // Get retrieves a record by its ID
	Update(model T) error                      // Update modifies an existing record in the database
	Delete(id string) error                    // Delete removes a record from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all records matching the given criteria
}

// Timestamps holds the audit columns shared by all persisted entities.
// DeletedAt is nil for live rows; soft-deleted rows keep their data.
type Timestamps struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
}

// Touch stamps CreatedAt (first call only) and UpdatedAt with now.
func (t *Timestamps) Touch(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}
