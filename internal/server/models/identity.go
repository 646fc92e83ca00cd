package models

import "time"

// Identity is the login record a profile hangs off. Profile.ID equals
// Identity.ID.
type Identity struct {
	ID        string
	Email     string
	Provider  string
	CreatedAt time.Time
}
