// Package models defines the domain types shared across packages.
package models

import "time"

// Note is an indexed vault file.
type Note struct {
	Path      string    `json:"path"`
	PrimaryID string    `json:"primary_id"`
	LuhmannID string    `json:"luhmann_id,omitempty"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
