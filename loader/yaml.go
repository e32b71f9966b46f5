package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// yamlLevel mirrors one level record in a YAML or JSON source.
type yamlLevel struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Category        string   `yaml:"category"`
	Difficulty      string   `yaml:"difficulty"`
	Points          *int     `yaml:"points"`
	Story           string   `yaml:"story"`
	Challenge       string   `yaml:"challenge"`
	ExpectedCommand string   `yaml:"expected_command"`
	ExpectedOutput  string   `yaml:"expected_output"`
	Hints           []string `yaml:"hints"`
	Rewards         []string `yaml:"rewards"`
	SetupCommands   []string `yaml:"setup_commands"`
	CleanupCommands []string `yaml:"cleanup_commands"`
}

// readYAML accepts either a top-level list of levels or a mapping with
// a "levels" list.
func readYAML(data []byte, source string) ([]rawLevel, error) {
	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("level file is empty")
		}
		return nil, fmt.Errorf("parsing: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, errors.New("level file is empty")
	}

	root := doc.Content[0]
	var items []*yaml.Node
	switch root.Kind {
	case yaml.SequenceNode:
		items = root.Content
	case yaml.MappingNode:
		list := mappingValue(root, "levels")
		if list == nil || list.Kind != yaml.SequenceNode {
			return nil, errors.New(`"levels" must be a list of levels`)
		}
		items = list.Content
	default:
		return nil, errors.New("level file must contain a list of levels")
	}

	raws := make([]rawLevel, 0, len(items))
	for i, node := range items {
		r, issues := decodeLevel(node)
		raws = append(raws, rawLevel{
			source:          fmt.Sprintf("%s[%d]", source, i),
			ID:              r.ID,
			Title:           r.Title,
			Description:     r.Description,
			Category:        r.Category,
			Difficulty:      r.Difficulty,
			Points:          r.Points,
			Story:           r.Story,
			Challenge:       r.Challenge,
			ExpectedCommand: r.ExpectedCommand,
			ExpectedOutput:  r.ExpectedOutput,
			Hints:           r.Hints,
			Rewards:         r.Rewards,
			SetupCommands:   r.SetupCommands,
			CleanupCommands: r.CleanupCommands,
			typeIssues:      issues,
		})
	}
	return raws, nil
}

// decodeLevel decodes one level record. Fields of the wrong type become
// issues naming the field; yaml.v3 still fills the fields that decoded.
func decodeLevel(node *yaml.Node) (yamlLevel, []Issue) {
	var rec yamlLevel
	if node.Kind != yaml.MappingNode {
		return rec, []Issue{{Message: fmt.Sprintf("level must be a mapping, got %s", nodeType(node))}}
	}
	err := node.Decode(&rec)
	if err == nil {
		return rec, nil
	}
	var te *yaml.TypeError
	if !errors.As(err, &te) {
		return rec, []Issue{{Message: err.Error()}}
	}

	var issues []Issue
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		var target any
		want := "a string"
		switch key {
		case "points":
			target, want = new(int), "a whole number"
		case "hints", "rewards", "setup_commands", "cleanup_commands":
			target, want = new([]string), "a list of strings"
		case "id", "title", "description", "category", "difficulty", "story",
			"challenge", "expected_command", "expected_output":
			target = new(string)
		default:
			continue
		}
		if val.Decode(target) != nil {
			issues = append(issues, fieldIssue(key, fmt.Sprintf("must be %s, got %s", want, nodeType(val))))
		}
	}
	if len(issues) == 0 {
		issues = append(issues, Issue{Message: err.Error()})
	}
	return rec, issues
}

// mappingValue returns the value node for key, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func nodeType(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "list"
	case yaml.MappingNode:
		return "mapping"
	}
	return strings.TrimPrefix(n.ShortTag(), "!!")
}
