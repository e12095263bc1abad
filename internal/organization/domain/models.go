// Package domain contains the organization directory model.
package domain

import "time"

// Organization is a generated tenant. It lives only in process memory.
type Organization struct {
	ID        string    `json:"org_id"`
	Name      string    `json:"org_name"`
	Slug      string    `json:"slug"`
	APIKey    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
