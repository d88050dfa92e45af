package fakeapi

import "testing"

func TestFixturesCoverEveryKind(t *testing.T) {
	s, err := LoadFixtures()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	for _, kind := range []string{"pokemon", "game", "pokedex", "type", "move", "ability", "egg", "description", "sprite"} {
		if s.Kinds()[kind] == 0 {
			t.Fatalf("no fixtures for %s", kind)
		}
	}
}

func TestNewStoreRejectsBadFixtures(t *testing.T) {
	cases := map[string]string{
		"not json":     `{`,
		"missing id":   `{"pokemon":[{"name":"Bulbasaur"}]}`,
		"duplicate id": `{"pokemon":[{"id":1,"name":"a"},{"id":1,"name":"b"}]}`,
	}
	for name, doc := range cases {
		if _, err := NewStore([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLookup(t *testing.T) {
	s, err := NewStore([]byte(`{"move":[{"id":1,"name":"Pound"}]}`))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, ok := s.Lookup("move", "1"); !ok {
		t.Fatal("expected id lookup to succeed")
	}
	if _, ok := s.Lookup("move", "pound"); !ok {
		t.Fatal("expected name lookup to succeed")
	}
	if _, ok := s.Lookup("move", "2"); ok {
		t.Fatal("unexpected hit for id 2")
	}
	if _, ok := s.Lookup("type", "1"); ok {
		t.Fatal("unexpected hit for unknown kind")
	}
}
