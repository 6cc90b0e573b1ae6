// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"encoding/json"
	"time"
)

// Snippet represents a saved, named piece of code.
//
// TIMESTAMPS ON THE WIRE:
// CreatedAt/UpdatedAt are time.Time in Go but travel as integer milliseconds
// since the Unix epoch (e.g. 1717171717171). That is the format the snippet
// collection has always been persisted in, so MarshalJSON/UnmarshalJSON below
// translate between the two. Because of that, every timestamp stored on a
// Snippet is kept at millisecond resolution (see Timestamp), so a save/load
// round-trip yields an equal snippet.
type Snippet struct {
	ID        string
	Name      string
	Language  string
	Code      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// snippetJSON is the persisted/wire shape of a Snippet.
type snippetJSON struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Language  string `json:"language"`
	Code      string `json:"code"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// MarshalJSON encodes the snippet with millisecond timestamps.
func (s Snippet) MarshalJSON() ([]byte, error) {
	return json.Marshal(snippetJSON{
		ID:        s.ID,
		Name:      s.Name,
		Language:  s.Language,
		Code:      s.Code,
		CreatedAt: s.CreatedAt.UnixMilli(),
		UpdatedAt: s.UpdatedAt.UnixMilli(),
	})
}

// UnmarshalJSON decodes a snippet written by MarshalJSON.
func (s *Snippet) UnmarshalJSON(data []byte) error {
	var raw snippetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Snippet{
		ID:        raw.ID,
		Name:      raw.Name,
		Language:  raw.Language,
		Code:      raw.Code,
		CreatedAt: time.UnixMilli(raw.CreatedAt),
		UpdatedAt: time.UnixMilli(raw.UpdatedAt),
	}
	return nil
}

// Timestamp truncates t to the millisecond resolution snippets are stored at.
// It also strips the monotonic clock reading, so == comparisons behave.
func Timestamp(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli())
}
