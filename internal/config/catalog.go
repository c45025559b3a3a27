package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog holds text keyed by dotted path. Nested YAML mappings are
// flattened on decode, so
//
//	errors:
//	  program_not_found: "..."
//
// is stored under "errors.program_not_found".
type Catalog map[string]string

// Lookup returns the raw entry for key.
func (c Catalog) Lookup(key string) (string, bool) {
	v, ok := c[key]
	return v, ok
}

// Format renders key, substituting {name} placeholders from the kv pairs.
// Unknown keys render as "Message not found: <key>".
func (c Catalog) Format(key string, kv ...any) string {
	tmpl, ok := c[key]
	if !ok {
		return "Message not found: " + key
	}
	if len(kv) < 2 {
		return tmpl
	}
	pairs := make([]string, 0, len(kv))
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+fmt.Sprint(kv[i])+"}", fmt.Sprint(kv[i+1]))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func (c Catalog) merge(overlay Catalog) Catalog {
	if overlay == nil {
		return c
	}
	out := make(Catalog, len(c)+len(overlay))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func (c *Catalog) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == 0 {
		*c = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", value.Line)
	}
	out := Catalog{}
	if err := flattenCatalog(value, "", out); err != nil {
		return err
	}
	*c = out
	return nil
}

func flattenCatalog(node *yaml.Node, prefix string, out Catalog) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if prefix != "" {
			key = prefix + "." + key
		}
		val := node.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			out[key] = val.Value
		case yaml.MappingNode:
			if err := flattenCatalog(val, key, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("line %d: %s must be a string or mapping", val.Line, key)
		}
	}
	return nil
}

// MarshalYAML re-nests dotted keys.
func (c Catalog) MarshalYAML() (any, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	root := map[string]any{}
	for _, k := range keys {
		parts := strings.Split(k, ".")
		cur := root
		ok := true
		for _, part := range parts[:len(parts)-1] {
			next, exists := cur[part]
			if !exists {
				child := map[string]any{}
				cur[part] = child
				cur = child
				continue
			}
			child, isMap := next.(map[string]any)
			if !isMap {
				ok = false
				break
			}
			cur = child
		}
		if !ok {
			root[k] = c[k]
			continue
		}
		cur[parts[len(parts)-1]] = c[k]
	}
	return root, nil
}
