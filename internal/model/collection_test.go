package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func sampleCollection() SnippetCollection {
	created := Timestamp(time.Date(2025, 3, 14, 9, 26, 53, 589_793_238, time.UTC))
	return SnippetCollection{
		Snippets: []Snippet{
			{
				ID:        "cv37rs3pp9olc6atsptg",
				Name:      "hello",
				Language:  "php",
				Code:      "echo 'hi';",
				CreatedAt: created,
				UpdatedAt: created,
			},
			{
				ID:        "cv37rs3pp9olc6atspu0",
				Name:      "loop",
				Language:  "javascript",
				Code:      "for (let i = 0; i < 3; i++) console.log(i)",
				CreatedAt: created.Add(time.Second),
				UpdatedAt: created.Add(2 * time.Second),
			},
		},
		ActiveSnippetID: strPtr("cv37rs3pp9olc6atspu0"),
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := sampleCollection()

	data, err := EncodeCollection(original)
	if err != nil {
		t.Fatalf("EncodeCollection() error = %v", err)
	}

	got, err := DecodeCollection(data)
	if err != nil {
		t.Fatalf("DecodeCollection() error = %v", err)
	}

	if len(got.Snippets) != len(original.Snippets) {
		t.Fatalf("got %d snippets, want %d", len(got.Snippets), len(original.Snippets))
	}
	for i, want := range original.Snippets {
		s := got.Snippets[i]
		if s.ID != want.ID || s.Name != want.Name || s.Language != want.Language || s.Code != want.Code {
			t.Errorf("snippet %d = %+v, want %+v", i, s, want)
		}
		if !s.CreatedAt.Equal(want.CreatedAt) {
			t.Errorf("snippet %d CreatedAt = %v, want %v", i, s.CreatedAt, want.CreatedAt)
		}
		if !s.UpdatedAt.Equal(want.UpdatedAt) {
			t.Errorf("snippet %d UpdatedAt = %v, want %v", i, s.UpdatedAt, want.UpdatedAt)
		}
	}
	if got.ActiveSnippetID == nil || *got.ActiveSnippetID != *original.ActiveSnippetID {
		t.Errorf("ActiveSnippetID = %v, want %q", got.ActiveSnippetID, *original.ActiveSnippetID)
	}
}

func TestEncodeCollection_Layout(t *testing.T) {
	data, err := EncodeCollection(sampleCollection())
	if err != nil {
		t.Fatalf("EncodeCollection() error = %v", err)
	}

	var raw struct {
		State struct {
			Snippets []map[string]any `json:"snippets"`
			Active   *string          `json:"activeSnippetId"`
		} `json:"state"`
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw.Version == nil || *raw.Version != StateVersion {
		t.Errorf("version = %v, want %d", raw.Version, StateVersion)
	}

	// Timestamps must be plain integer milliseconds.
	created, ok := raw.State.Snippets[0]["createdAt"].(float64)
	if !ok {
		t.Fatalf("createdAt has type %T, want number", raw.State.Snippets[0]["createdAt"])
	}
	want := sampleCollection().Snippets[0].CreatedAt.UnixMilli()
	if int64(created) != want {
		t.Errorf("createdAt = %d, want %d", int64(created), want)
	}
	if _, ok := raw.State.Snippets[0]["language"]; !ok {
		t.Error("snippet is missing the language key")
	}
}

func TestEncodeCollection_EmptyUsesArrayAndNull(t *testing.T) {
	data, err := EncodeCollection(SnippetCollection{})
	if err != nil {
		t.Fatalf("EncodeCollection() error = %v", err)
	}
	got := string(data)
	if !strings.Contains(got, `"snippets":[]`) {
		t.Errorf("encoded = %s, want empty snippets array", got)
	}
	if !strings.Contains(got, `"activeSnippetId":null`) {
		t.Errorf("encoded = %s, want null activeSnippetId", got)
	}
}

func TestDecodeCollection_BareCollection(t *testing.T) {
	data := []byte(`{"snippets":[{"id":"a","name":"n","language":"php","code":"","createdAt":1,"updatedAt":2}],"activeSnippetId":"a"}`)

	got, err := DecodeCollection(data)
	if err != nil {
		t.Fatalf("DecodeCollection() error = %v", err)
	}
	if len(got.Snippets) != 1 || got.Snippets[0].ID != "a" {
		t.Fatalf("Snippets = %+v, want one snippet with id a", got.Snippets)
	}
	if got.Snippets[0].UpdatedAt.UnixMilli() != 2 {
		t.Errorf("UpdatedAt = %d ms, want 2", got.Snippets[0].UpdatedAt.UnixMilli())
	}
}

func TestDecodeCollection_MissingFields(t *testing.T) {
	got, err := DecodeCollection([]byte(`{"state":{}}`))
	if err != nil {
		t.Fatalf("DecodeCollection() error = %v", err)
	}
	if got.Snippets == nil || len(got.Snippets) != 0 {
		t.Errorf("Snippets = %#v, want empty non-nil slice", got.Snippets)
	}
	if got.ActiveSnippetID != nil {
		t.Errorf("ActiveSnippetID = %q, want nil", *got.ActiveSnippetID)
	}
}

func TestDecodeCollection_Garbage(t *testing.T) {
	if _, err := DecodeCollection([]byte("not json")); err == nil {
		t.Fatal("DecodeCollection() should fail on invalid JSON")
	}
}

func TestClone_IsIndependent(t *testing.T) {
	original := sampleCollection()
	clone := original.Clone()

	clone.Snippets[0].Name = "changed"
	*clone.ActiveSnippetID = "other"

	if original.Snippets[0].Name != "hello" {
		t.Error("mutating the clone changed the original snippets")
	}
	if *original.ActiveSnippetID != "cv37rs3pp9olc6atspu0" {
		t.Error("mutating the clone changed the original active id")
	}
}

func TestIndexOf(t *testing.T) {
	c := sampleCollection()
	if got := c.IndexOf("cv37rs3pp9olc6atspu0"); got != 1 {
		t.Errorf("IndexOf(existing) = %d, want 1", got)
	}
	if got := c.IndexOf("missing"); got != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", got)
	}
}

func TestTimestamp_TruncatesToMillis(t *testing.T) {
	in := time.Date(2025, 1, 1, 0, 0, 0, 1_999_999, time.UTC)
	got := Timestamp(in)
	if got.UnixNano()%int64(time.Millisecond) != 0 {
		t.Errorf("Timestamp() kept sub-millisecond precision: %v", got)
	}
	if got.UnixMilli() != in.UnixMilli() {
		t.Errorf("Timestamp() = %d ms, want %d", got.UnixMilli(), in.UnixMilli())
	}
}
