package models

import "time"

// SystemPrompt is an admin-managed instruction block appended to meeting
// contexts while it is active. At most one prompt is active at a time.
type SystemPrompt struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name"`
	Content   string    `json:"content" firestore:"content"`
	IsActive  bool      `json:"isActive" firestore:"isActive"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}
