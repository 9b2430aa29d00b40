// Package favorites manages per-user bookmarks of registry entities.
package favorites

import "time"

// Entity types a favorite can reference.
const (
	EntityCompany  = "company"
	EntityPerson   = "person"
	EntityIndustry = "industry"
)

// Favorite is one bookmarked registry entity. Label carries the display
// name joined from the referenced table.
type Favorite struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"-"`
	EntityType string    `json:"entity_type"`
	EntityRef  string    `json:"entity_ref"`
	Label      string    `json:"label"`
	CreatedAt  time.Time `json:"created_at"`
}
