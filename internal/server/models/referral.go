package models

import "time"

// Referral records that ReferredID signed up through ReferrerID's code.
// A profile can be referred at most once.
type Referral struct {
	ID         string
	ReferrerID string
	ReferredID string
	Code       string
	CreatedAt  time.Time
}
