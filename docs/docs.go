// Package docs renders player-facing documentation for a level catalog:
// the QUEST.md guide, a level authoring template, and the quest block
// embedded in a README.
package docs

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/charmbracelet/glamour"

	"github.com/nathoo/shellquest/engine/catalog"
	"github.com/nathoo/shellquest/types"
)

// README markers delimiting the generated quest block.
const (
	StartMarker = "<!-- QUEST-START -->"
	EndMarker   = "<!-- QUEST-END -->"
)

// DefaultTitle heads the generated guide.
const DefaultTitle = "Shell Quest"

// ErrNoMarkers is returned by UpdateReadme when the README lacks the
// quest markers.
var ErrNoMarkers = errors.New("readme has no quest markers")

var difficultyOrder = []types.Difficulty{types.Beginner, types.Intermediate, types.Advanced}

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
}

var guideTmpl = template.Must(template.New("guide").Funcs(funcs).Parse(`# {{.Title}}

An interactive text adventure that teaches UNIX commands through hands-on challenges.

## Quest Overview

- **Total Levels**: {{.Stats.TotalLevels}}
- **Categories**: {{join .Stats.Categories ", "}}
- **Difficulty Range**: {{join .Difficulties ", "}}
- **Total Points Available**: {{.Stats.TotalPoints}}

## Available Levels
{{range $i, $l := .Levels}}
### Level {{inc $i}}: {{$l.Title}}

- **Category**: {{$l.Category}}
- **Difficulty**: {{$l.Difficulty}}
- **Points**: {{$l.Points}}
{{- if $l.Description}}
- **Description**: {{$l.Description}}
{{- end}}

**Challenge**: {{$l.Challenge}}
{{end}}
## Commands

- ` + "`shellquest play`" + ` - Start the interactive game
- ` + "`shellquest validate`" + ` - Validate level definitions
- ` + "`shellquest stats`" + ` - Show quest statistics
- ` + "`shellquest generate`" + ` - Regenerate this file

Enjoy your journey through the terminal!
`))

var readmeTmpl = template.Must(template.New("readme").Parse(`
## Quest Status

- **Total Levels**: {{.Stats.TotalLevels}}
- **Categories**: {{len .Stats.Categories}}
- **Total Points**: {{.Stats.TotalPoints}}
- **Status**: Ready to Play!

### Quick Start

` + "```bash" + `
go install ./cmd/shellquest
shellquest play
` + "```" + `
`))

// LevelTemplate is a commented starting point for authoring a level.
const LevelTemplate = `# Level template. Copy into levels.yaml and fill in.
- id: unique_level_id            # required, unique
  title: Level Title             # required
  category: navigation           # default: general
  difficulty: beginner           # beginner | intermediate | advanced
  points: 10                     # positive, default 10
  description: What this level teaches
  story: Narrative shown when the level starts.
  challenge: What the player must do   # required
  setup_commands:                # run once when the level is entered
    - mkdir -p cave
    - touch cave/map.txt
  expected_command: "regex:^ls\\s+cave/?$"   # literal, or regex: prefix
  expected_output: ""            # optional, compared after trimming
  hints:
    - Use ls to list files.
    - Give ls a directory name.
  rewards:
    - You found the map!
  cleanup_commands:              # run after the level is passed or skipped
    - rm -r cave
`

type guideData struct {
	Title        string
	Stats        catalog.Stats
	Difficulties []string
	Levels       []*types.LevelDef
}

func newGuideData(title string, cat *catalog.Catalog) guideData {
	if title == "" {
		title = DefaultTitle
	}
	st := cat.Statistics()
	var diffs []string
	for _, d := range difficultyOrder {
		if st.DifficultyBreakdown[d] > 0 {
			diffs = append(diffs, string(d))
		}
	}
	return guideData{Title: title, Stats: st, Difficulties: diffs, Levels: cat.Ordered()}
}

// Generate writes the QUEST.md guide for the catalog.
func Generate(w io.Writer, title string, cat *catalog.Catalog) error {
	if err := guideTmpl.Execute(w, newGuideData(title, cat)); err != nil {
		return fmt.Errorf("rendering guide: %w", err)
	}
	return nil
}

// GenerateFile writes the guide to path.
func GenerateFile(path, title string, cat *catalog.Catalog) error {
	var buf bytes.Buffer
	if err := Generate(&buf, title, cat); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// UpdateReadme replaces the content between the quest markers in readme
// with a status block for the catalog. Text outside the markers is kept.
func UpdateReadme(readme []byte, cat *catalog.Catalog) ([]byte, error) {
	s := string(readme)
	start := strings.Index(s, StartMarker)
	end := strings.Index(s, EndMarker)
	if start < 0 || end < 0 || end < start {
		return nil, ErrNoMarkers
	}

	var block bytes.Buffer
	if err := readmeTmpl.Execute(&block, newGuideData("", cat)); err != nil {
		return nil, fmt.Errorf("rendering readme block: %w", err)
	}

	var out bytes.Buffer
	out.WriteString(s[:start+len(StartMarker)])
	out.Write(block.Bytes())
	out.WriteString(s[end:])
	return out.Bytes(), nil
}

// Preview renders markdown for the terminal.
func Preview(markdown string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering preview: %w", err)
	}
	return out, nil
}
