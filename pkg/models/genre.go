package models

// Genre is an admin-seeded tag. Sync only ever links entries to existing
// genres by case-insensitive name match; it never creates new ones.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
