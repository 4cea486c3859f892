// Package block normalises the debug-formatted block-state strings the
// game's admin interface reports into a canonical, comparable form, and
// implements the tolerant name matching assertions use to compare observed
// state against an expected block name.
package block

import (
	"fmt"
	"sort"
	"strings"
)

// Block is a canonical, namespaced block identifier plus its state
// properties, e.g. "minecraft:redstone_wire" with {"power": "7"}.
type Block struct {
	ID         string
	Properties map[string]string
}

// String renders the block back into "ns:name[k=v,k2=v2]" form, properties
// sorted by key so the output is deterministic.
func (b Block) String() string {
	if len(b.Properties) == 0 {
		return b.ID
	}
	keys := make([]string, 0, len(b.Properties))
	for k := range b.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, b.Properties[k]))
	}
	return fmt.Sprintf("%s[%s]", b.ID, strings.Join(pairs, ","))
}

// ExtractID parses a debug-formatted block state, as the admin interface's
// "The block at ... is BlockState(id: 42, RedstoneWire { power: 7 })"
// response renders it, into a canonical "ns:snake_case[prop=value,...]" id.
//
// Two shapes are accepted: a struct with properties,
// "BlockState(id: N, PascalName { prop: value, ... })", and a bare variant
// with none, "BlockState(id: N, PascalName)".
func ExtractID(debug string) (string, error) {
	debug = strings.TrimSpace(debug)
	const prefix = "BlockState(id:"
	if !strings.HasPrefix(debug, prefix) {
		return "", fmt.Errorf("block: %q is not a BlockState debug string", debug)
	}
	if !strings.HasSuffix(debug, ")") {
		return "", fmt.Errorf("block: %q is missing closing paren", debug)
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(debug, prefix), ")")

	idSep := strings.Index(inner, ",")
	if idSep < 0 {
		return "", fmt.Errorf("block: %q has no block name after id", debug)
	}
	rest := strings.TrimSpace(inner[idSep+1:])

	var pascalName, propsBody string
	if braceIdx := strings.Index(rest, "{"); braceIdx >= 0 {
		pascalName = strings.TrimSpace(rest[:braceIdx])
		body := strings.TrimSpace(rest[braceIdx+1:])
		body = strings.TrimSuffix(strings.TrimSpace(body), "}")
		propsBody = strings.TrimSpace(body)
	} else {
		pascalName = rest
	}
	if pascalName == "" {
		return "", fmt.Errorf("block: %q has an empty block name", debug)
	}

	snake := pascalToSnake(pascalName)
	if !strings.Contains(snake, ":") {
		snake = "minecraft:" + snake
	}

	if propsBody == "" {
		return snake, nil
	}

	props := map[string]string{}
	for _, field := range strings.Split(propsBody, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		kv := strings.SplitN(field, ":", 2)
		if len(kv) != 2 {
			return "", fmt.Errorf("block: malformed property field %q in %q", field, debug)
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.ToLower(strings.TrimSpace(kv[1]))
		props[key] = val
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, props[k]))
	}
	return fmt.Sprintf("%s[%s]", snake, strings.Join(pairs, ",")), nil
}

// pascalToSnake converts a PascalCase identifier, e.g. "RedstoneWire", to
// "redstone_wire". An embedded ':' (already-namespaced input) is left as a
// boundary and never gets an underscore inserted before it.
func pascalToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				prev := rune(s[i-1])
				if prev != ':' && prev != '_' {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseBlock parses the canonical "ns:name[k=v,k2=v2]" (or bare "ns:name")
// form produced by ExtractID back into a Block, the round trip an
// AssertState or Assert action needs to build a Block value from a test
// specification's expected-state string.
func ParseBlock(s string) (Block, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Block{}, fmt.Errorf("block: empty block string")
	}

	id := s
	propsBody := ""
	if open := strings.Index(s, "["); open >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Block{}, fmt.Errorf("block: %q missing closing ]", s)
		}
		id = s[:open]
		propsBody = s[open+1 : len(s)-1]
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Block{}, fmt.Errorf("block: %q has no block id", s)
	}
	if !strings.Contains(id, ":") {
		id = "minecraft:" + id
	}

	var props map[string]string
	if propsBody != "" {
		props = map[string]string{}
		for _, field := range strings.Split(propsBody, ",") {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			kv := strings.SplitN(field, "=", 2)
			if len(kv) != 2 {
				return Block{}, fmt.Errorf("block: malformed property %q in %q", field, s)
			}
			props[strings.ToLower(strings.TrimSpace(kv[0]))] = strings.ToLower(strings.TrimSpace(kv[1]))
		}
	}

	return Block{ID: id, Properties: props}, nil
}

// NormalizeName strips any "ns:" namespace prefix, lower-cases, and removes
// underscores, collapsing the variations an expected-name string and an
// observed block id might differ by.
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.ReplaceAll(name, "_", "")
	return name
}

// Matches reports whether observed satisfies expected, tolerating a bare
// local name against a namespaced one: the normalised observed id must
// contain the normalised expected id as a substring (e.g. "wire" matches
// "redstone_wire"). The reverse does not hold — an expected name more
// specific than what was actually observed is not a match.
func Matches(expected, observed string) bool {
	e := NormalizeName(expected)
	o := NormalizeName(observed)
	if e == "" || o == "" {
		return e == o
	}
	return strings.Contains(o, e)
}

// PropertyValue returns the named property's value from a canonical
// "ns:name[k=v,...]" block string, used by AssertState to read the rendered
// value of a specific property off an observed block.
func PropertyValue(canonical, property string) (string, bool) {
	b, err := ParseBlock(canonical)
	if err != nil {
		return "", false
	}
	v, ok := b.Properties[strings.ToLower(property)]
	return v, ok
}
