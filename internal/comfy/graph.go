package comfy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"reelforge/internal/services"
)

// Placeholder identifies a value the workflow template expects per job.
type Placeholder int

const (
	PlaceholderPrompt Placeholder = iota + 1
	PlaceholderSeed
	PlaceholderOutput
)

var placeholders = []Placeholder{PlaceholderPrompt, PlaceholderSeed, PlaceholderOutput}

// Sentinel returns the literal leaf value marking p in a template.
func (p Placeholder) Sentinel() string {
	switch p {
	case PlaceholderPrompt:
		return "__PROMPT__"
	case PlaceholderSeed:
		return "__SEED__"
	case PlaceholderOutput:
		return "__OUTPUT__"
	default:
		return ""
	}
}

func (p Placeholder) String() string {
	switch p {
	case PlaceholderPrompt:
		return "prompt"
	case PlaceholderSeed:
		return "seed"
	case PlaceholderOutput:
		return "output"
	default:
		return fmt.Sprintf("placeholder(%d)", int(p))
	}
}

func placeholderFor(value string) (Placeholder, bool) {
	for _, p := range placeholders {
		if value == p.Sentinel() {
			return p, true
		}
	}
	return 0, false
}

// Values are the per-job substitutions.
type Values struct {
	Prompt string
	Seed   int64
	Output string
}

func (v Values) lookup(p Placeholder) any {
	switch p {
	case PlaceholderPrompt:
		return v.Prompt
	case PlaceholderSeed:
		return v.Seed
	case PlaceholderOutput:
		return v.Output
	default:
		return nil
	}
}

// Node is one entry of a ComfyUI prompt graph.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      map[string]any `json:"_meta,omitempty"`
}

// Graph maps node ids to nodes.
type Graph map[string]Node

// LoadGraph reads a workflow template from path.
func LoadGraph(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "comfy", "load workflow", path, err)
	}
	graph, err := ParseGraph(data)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "comfy", "parse workflow", path, err)
	}
	return graph, nil
}

// ParseGraph decodes a prompt graph, accepting either the bare graph or one
// wrapped as {"prompt": {...}}.
func ParseGraph(data []byte) (Graph, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if inner, ok := top["prompt"]; ok && len(bytes.TrimSpace(inner)) > 0 && bytes.TrimSpace(inner)[0] == '{' {
		data = inner
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var graph Graph
	if err := decoder.Decode(&graph); err != nil {
		return nil, fmt.Errorf("decode workflow graph: %w", err)
	}
	if len(graph) == 0 {
		return nil, fmt.Errorf("workflow graph has no nodes")
	}
	return graph, nil
}

// Placeholders counts the placeholder leaves present in the graph.
func (g Graph) Placeholders() map[Placeholder]int {
	counts := map[Placeholder]int{}
	for _, node := range g {
		for _, value := range node.Inputs {
			countPlaceholders(value, counts)
		}
	}
	return counts
}

func countPlaceholders(value any, counts map[Placeholder]int) {
	switch v := value.(type) {
	case string:
		if p, ok := placeholderFor(v); ok {
			counts[p]++
		}
	case []any:
		for _, item := range v {
			countPlaceholders(item, counts)
		}
	case map[string]any:
		for _, item := range v {
			countPlaceholders(item, counts)
		}
	}
}

// Substitute returns a deep copy of g with every placeholder leaf replaced by
// its value. g itself is never modified.
func (g Graph) Substitute(values Values) Graph {
	out := make(Graph, len(g))
	for id, node := range g {
		copied := Node{ClassType: node.ClassType}
		if node.Inputs != nil {
			copied.Inputs = make(map[string]any, len(node.Inputs))
			for key, value := range node.Inputs {
				copied.Inputs[key] = substituteValue(value, values)
			}
		}
		if node.Meta != nil {
			copied.Meta = make(map[string]any, len(node.Meta))
			for key, value := range node.Meta {
				copied.Meta[key] = copyValue(value)
			}
		}
		out[id] = copied
	}
	return out
}

func substituteValue(value any, values Values) any {
	switch v := value.(type) {
	case string:
		if p, ok := placeholderFor(v); ok {
			return values.lookup(p)
		}
		return v
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = substituteValue(item, values)
		}
		return items
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, item := range v {
			m[key] = substituteValue(item, values)
		}
		return m
	default:
		return v
	}
}

func copyValue(value any) any {
	switch v := value.(type) {
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = copyValue(item)
		}
		return items
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, item := range v {
			m[key] = copyValue(item)
		}
		return m
	default:
		return v
	}
}
