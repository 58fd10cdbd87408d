package types

import "time"

// AnnotationRecord is the full, untruncated rationale stored for a ticket.
type AnnotationRecord struct {
	Ticket    uint64    `yaml:"ticket" json:"ticket"`
	Text      string    `yaml:"text" json:"text"`
	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}
