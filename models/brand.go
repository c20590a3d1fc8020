package models

import "time"

// Brand is a monitored brand together with the keywords that seed its queries.
type Brand struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	// Expand appends the alphabet suffixes to every keyword.
	Expand    bool      `json:"expand"`
	Active    bool      `json:"active"`
	Language  string    `json:"language"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"created_at"`
}
