// Package pkmntool exposes a pkmn.Client as a langchaingo tool so a model
// can look up Pokemon data during a conversation.
package pkmntool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pkmn-dev/pkmn/pkg/pkmn"
	"github.com/tmc/langchaingo/tools"
)

var _ tools.Tool = (*Tool)(nil)

// skipped fields carry no information for a model.
var skipped = map[string]bool{
	"name":         true,
	"id":           true,
	"resource_uri": true,
	"created":      true,
	"modified":     true,
}

type Tool struct {
	client *pkmn.Client
}

func New(client *pkmn.Client) *Tool {
	return &Tool{client: client}
}

func (t *Tool) Name() string { return "fetchPokeAPI" }

func (t *Tool) Description() string {
	return `A wrapper around the Pokemon data API.
Useful for answering questions about Pokemon, moves, abilities, types, games, pokedexes, egg groups, descriptions and sprites.
Input is either a single Pokemon name or id (e.g. "bulbasaur"), or a kind followed by a name or id (e.g. "move pound", "type 1"),
or a resource URI (e.g. "/api/v1/description/4/"). Call the tool once per resource.`
}

// Call looks up one resource. Unknown resources are reported in the output
// text; only unusable input is returned as an error.
func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	input = strings.Trim(strings.TrimSpace(input), `"'`)
	fields := strings.Fields(input)

	var (
		res pkmn.Resource
		err error
	)
	switch {
	case len(fields) == 1 && strings.HasPrefix(fields[0], "/"):
		res, err = t.client.Resource(ctx, fields[0])
	case len(fields) == 1:
		res, err = t.client.Pokemon(ctx, pkmn.Name(fields[0]))
	case len(fields) == 2:
		kind, kerr := pkmn.ParseKind(fields[0])
		if kerr != nil {
			return "", kerr
		}
		res, err = t.client.Get(ctx, kind, pkmn.Name(fields[1]))
	default:
		return "", fmt.Errorf("invalid input %q: want \"<name>\" or \"<kind> <name>\"", input)
	}

	if errors.Is(err, pkmn.ErrNotFound) {
		return fmt.Sprintf("No resource found for %q.", input), nil
	}
	if err != nil {
		return "", err
	}
	return Summarize(res), nil
}

// Summarize renders a resource as one line: name and id first, then scalar
// fields and the names of linked resources, in key order.
func Summarize(res pkmn.Resource) string {
	var parts []string
	if name, ok := res.String("name"); ok {
		parts = append(parts, "Name: "+name)
	}
	if id, ok := res.Int("id"); ok {
		parts = append(parts, fmt.Sprintf("ID: %d", id))
	}

	keys := make([]string, 0, len(res))
	for k := range res {
		if !skipped[k] {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		switch v := res[k].(type) {
		case string:
			parts = append(parts, fmt.Sprintf("%s: %s", k, v))
		case json.Number:
			parts = append(parts, fmt.Sprintf("%s: %s", k, v.String()))
		case bool:
			parts = append(parts, fmt.Sprintf("%s: %t", k, v))
		case map[string]any:
			if name, ok := pkmn.Resource(v).String("name"); ok {
				parts = append(parts, fmt.Sprintf("%s: %s", k, name))
			}
		case []any:
			items, _ := res.List(k)
			names := make([]string, 0, len(items))
			for _, it := range items {
				if name, ok := it.String("name"); ok {
					names = append(names, name)
				}
			}
			parts = append(parts, fmt.Sprintf("%s: [%s]", k, strings.Join(names, ", ")))
		}
	}
	return strings.Join(parts, ", ")
}
