package pkmn

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Kind names a resource collection on the upstream API.
type Kind string

const (
	KindPokemon     Kind = "pokemon"
	KindGame        Kind = "game"
	KindPokedex     Kind = "pokedex"
	KindType        Kind = "type"
	KindMove        Kind = "move"
	KindAbility     Kind = "ability"
	KindEgg         Kind = "egg"
	KindDescription Kind = "description"
	KindSprite      Kind = "sprite"
)

// Kinds returns every kind that has a dedicated accessor on Client.
func Kinds() []Kind {
	return []Kind{
		KindPokemon,
		KindGame,
		KindPokedex,
		KindType,
		KindMove,
		KindAbility,
		KindEgg,
		KindDescription,
		KindSprite,
	}
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind %q", s)
}

// Ref identifies a single resource by numeric id or by name.
type Ref string

// ID returns the ref for a numeric id.
func ID(n int) Ref { return Ref(strconv.Itoa(n)) }

// Name returns the ref for a resource name.
func Name(s string) Ref { return Ref(s).normalized() }

func (r Ref) normalized() Ref {
	return Ref(strings.ToLower(strings.TrimSpace(string(r))))
}

// Resource is a decoded upstream object. Numbers are kept as json.Number.
type Resource map[string]any

func (r Resource) Get(key string) any { return r[key] }

func (r Resource) Has(key string) bool {
	_, ok := r[key]
	return ok
}

func (r Resource) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// Int reads an integral number field.
func (r Resource) Int(key string) (int64, bool) {
	return toInt(r[key])
}

// Object reads a nested object field.
func (r Resource) Object(key string) (Resource, bool) {
	return toResource(r[key])
}

// List reads a field holding an array of objects. Non-object entries are skipped.
func (r Resource) List(key string) ([]Resource, bool) {
	raw, ok := r[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]Resource, 0, len(raw))
	for _, v := range raw {
		if obj, ok := toResource(v); ok {
			out = append(out, obj)
		}
	}
	return out, true
}

// Path walks nested objects, e.g. Path("pokemon", "name").
func (r Resource) Path(keys ...string) (any, bool) {
	if len(keys) == 0 {
		return nil, false
	}
	cur := r
	for i, k := range keys {
		v, ok := cur[k]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return v, true
		}
		cur, ok = toResource(v)
		if !ok {
			return nil, false
		}
	}
	return nil, false
}

// URI returns the resource_uri field, or "" if absent.
func (r Resource) URI() string {
	s, _ := r.String("resource_uri")
	return s
}

func toResource(v any) (Resource, bool) {
	switch m := v.(type) {
	case Resource:
		return m, true
	case map[string]any:
		return Resource(m), true
	default:
		return nil, false
	}
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func decodeResource(body []byte) (Resource, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out Resource
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("response is not a JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("response has trailing data after the JSON object")
	}
	return out, nil
}

// Clone returns a deep copy of r. Nested objects and lists are copied too.
func (r Resource) Clone() Resource {
	if r == nil {
		return nil
	}
	return cloneValue(map[string]any(r)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
