package fakeapi

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

//go:embed fixtures/resources.json
var fixturesFS embed.FS

// Store indexes fixture resources by kind, id and lowercased name.
type Store struct {
	byID   map[string]map[int64]json.RawMessage
	byName map[string]map[string]json.RawMessage
}

type fixtureHeader struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LoadFixtures builds a Store from the embedded fixture set.
func LoadFixtures() (*Store, error) {
	b, err := fixturesFS.ReadFile("fixtures/resources.json")
	if err != nil {
		return nil, err
	}
	return NewStore(b)
}

// NewStore parses a document of the form {"kind": [resource, ...], ...}.
func NewStore(doc []byte) (*Store, error) {
	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	s := &Store{
		byID:   make(map[string]map[int64]json.RawMessage, len(raw)),
		byName: make(map[string]map[string]json.RawMessage, len(raw)),
	}
	for kind, items := range raw {
		s.byID[kind] = make(map[int64]json.RawMessage, len(items))
		s.byName[kind] = make(map[string]json.RawMessage, len(items))
		for i, item := range items {
			var h fixtureHeader
			if err := json.Unmarshal(item, &h); err != nil {
				return nil, fmt.Errorf("fixture %s[%d]: %w", kind, i, err)
			}
			if h.ID <= 0 {
				return nil, fmt.Errorf("fixture %s[%d]: missing id", kind, i)
			}
			if _, dup := s.byID[kind][h.ID]; dup {
				return nil, fmt.Errorf("fixture %s[%d]: duplicate id %d", kind, i, h.ID)
			}
			s.byID[kind][h.ID] = item
			if h.Name != "" {
				s.byName[kind][strings.ToLower(h.Name)] = item
			}
		}
	}
	return s, nil
}

// Lookup resolves ref as a numeric id first, then as a name.
func (s *Store) Lookup(kind, ref string) (json.RawMessage, bool) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		item, ok := s.byID[kind][id]
		return item, ok
	}
	item, ok := s.byName[kind][strings.ToLower(ref)]
	return item, ok
}

// Kinds returns the number of resources held per kind.
func (s *Store) Kinds() map[string]int {
	out := make(map[string]int, len(s.byID))
	for k, v := range s.byID {
		out[k] = len(v)
	}
	return out
}
