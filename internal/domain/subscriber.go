package domain

import "time"

// SourceWebsite tags subscriptions made through the public site
const SourceWebsite = "website"

// Subscriber is a newsletter signup
type Subscriber struct {
	ID        string    `json:"id"`
	Email     string    `json:"email" validate:"required,email,max=254"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}
