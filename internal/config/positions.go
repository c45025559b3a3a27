package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Position is a named screen location a window can be moved to.
type Position struct {
	Key    string
	Name   string
	Coords [2]int
}

// X returns the left edge of the position.
func (p Position) X() int { return p.Coords[0] }

// Y returns the top edge of the position.
func (p Position) Y() int { return p.Coords[1] }

// PositionList is the position table in file order. In YAML it is a mapping
// from key to {name, coords}:
//
//	positions:
//	  top_left: {name: "Top Left", coords: [0, 0]}
type PositionList []Position

// Get returns the entry named key.
func (l PositionList) Get(key string) (Position, bool) {
	for _, p := range l {
		if p.Key == key {
			return p, true
		}
	}
	return Position{}, false
}

// Keys returns position keys in table order.
func (l PositionList) Keys() []string {
	out := make([]string, 0, len(l))
	for _, p := range l {
		out = append(out, p.Key)
	}
	return out
}

type positionYAML struct {
	Name   string `yaml:"name"`
	Coords []int  `yaml:"coords,flow"`
}

func (l *PositionList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.MappingNode:
	default:
		return fmt.Errorf("line %d: positions must be a mapping of key -> {name, coords}", value.Line)
	}

	out := make(PositionList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]
		pos, err := decodePosition(keyNode.Value, valNode)
		if err != nil {
			return err
		}
		out = append(out, pos)
	}
	*l = out
	return nil
}

func decodePosition(key string, node *yaml.Node) (Position, error) {
	if node.Kind != yaml.MappingNode {
		return Position{}, fmt.Errorf("line %d: position %q must be a mapping", node.Line, key)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch field := node.Content[i]; field.Value {
		case "name", "coords":
		default:
			return Position{}, fmt.Errorf("line %d: field %s not found in position %q", field.Line, field.Value, key)
		}
	}

	var raw positionYAML
	if err := node.Decode(&raw); err != nil {
		return Position{}, fmt.Errorf("position %q: %w", key, err)
	}
	if len(raw.Coords) != 2 {
		return Position{}, fmt.Errorf("line %d: position %q coords must be [x, y]", node.Line, key)
	}
	name := raw.Name
	if name == "" {
		name = key
	}
	return Position{Key: key, Name: name, Coords: [2]int{raw.Coords[0], raw.Coords[1]}}, nil
}

func (l PositionList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range l {
		var val yaml.Node
		if err := val.Encode(positionYAML{Name: p.Name, Coords: []int{p.X(), p.Y()}}); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			&val,
		)
	}
	return node, nil
}
