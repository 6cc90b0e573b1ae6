package model

import (
	"encoding/json"
	"fmt"
)

// StateVersion is written into the persisted envelope. Bump it when the
// collection layout changes incompatibly.
const StateVersion = 0

// SnippetCollection is everything the snippet store owns: the snippets in
// insertion order plus the optional "active" pointer.
//
// ActiveSnippetID is a *string so "unset" (nil, JSON null) is distinct from
// an empty id.
type SnippetCollection struct {
	Snippets        []Snippet `json:"snippets"`
	ActiveSnippetID *string   `json:"activeSnippetId"`
}

// Clone returns a deep copy; callers may mutate it freely.
func (c SnippetCollection) Clone() SnippetCollection {
	out := SnippetCollection{
		Snippets: make([]Snippet, len(c.Snippets)),
	}
	copy(out.Snippets, c.Snippets)
	if c.ActiveSnippetID != nil {
		id := *c.ActiveSnippetID
		out.ActiveSnippetID = &id
	}
	return out
}

// IndexOf returns the position of the snippet with the given id, or -1.
func (c SnippetCollection) IndexOf(id string) int {
	for i := range c.Snippets {
		if c.Snippets[i].ID == id {
			return i
		}
	}
	return -1
}

// envelope is the persisted record:
//
//	{"state":{"snippets":[...],"activeSnippetId":null},"version":0}
type envelope struct {
	State   *SnippetCollection `json:"state"`
	Version int                `json:"version"`
}

// EncodeCollection serializes a collection into its persisted form.
func EncodeCollection(c SnippetCollection) ([]byte, error) {
	if c.Snippets == nil {
		c.Snippets = []Snippet{}
	}
	data, err := json.Marshal(envelope{State: &c, Version: StateVersion})
	if err != nil {
		return nil, fmt.Errorf("model: encoding snippet collection: %w", err)
	}
	return data, nil
}

// DecodeCollection parses a persisted record. A bare collection without the
// envelope is accepted as well.
func DecodeCollection(data []byte) (SnippetCollection, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return SnippetCollection{}, fmt.Errorf("model: decoding snippet collection: %w", err)
	}

	var c SnippetCollection
	if env.State != nil {
		c = *env.State
	} else if err := json.Unmarshal(data, &c); err != nil {
		return SnippetCollection{}, fmt.Errorf("model: decoding snippet collection: %w", err)
	}

	if c.Snippets == nil {
		c.Snippets = []Snippet{}
	}
	return c, nil
}
