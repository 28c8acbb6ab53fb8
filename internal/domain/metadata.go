package domain

import "time"

// Metadata carries creation and mutation timestamps, RFC3339 in UTC.
// CreatedAt is set once; UpdatedAt moves on every mutation of the
// owning aggregate.
type Metadata struct {
	CreatedAt string `toml:"created_at" json:"created_at" yaml:"created_at"`
	UpdatedAt string `toml:"updated_at" json:"updated_at" yaml:"updated_at"`
}

func NewMetadata(now time.Time) Metadata {
	ts := now.UTC().Format(time.RFC3339)
	return Metadata{CreatedAt: ts, UpdatedAt: ts}
}

// Touch bumps UpdatedAt to the current time.
func (m *Metadata) Touch() {
	m.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}
