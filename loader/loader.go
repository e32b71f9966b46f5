// Package loader reads level content from YAML or Lua sources, validates
// it, and builds the immutable level catalog. Loading is all-or-nothing.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nathoo/shellquest/engine/catalog"
)

// Extensions accepted as level sources.
var sourceExts = map[string]bool{
	".yaml": true,
	".yml":  true,
	".json": true,
	".lua":  true,
}

// Load reads path (a level file or a directory of level files),
// validates every level, and returns the catalog. Any problem aborts
// the load with a *ValidationError.
func Load(path string) (*catalog.Catalog, error) {
	cat, _, err := LoadWithWarnings(path)
	return cat, err
}

// LoadWithWarnings is Load that also returns non-fatal warnings.
func LoadWithWarnings(path string) (*catalog.Catalog, []Issue, error) {
	files, err := sourceFiles(path)
	if err != nil {
		return nil, nil, err
	}

	var raws []rawLevel
	for _, f := range files {
		levels, err := readSource(f)
		if err != nil {
			return nil, nil, &ValidationError{Issues: []Issue{{
				Source:  filepath.Base(f),
				Message: err.Error(),
			}}}
		}
		raws = append(raws, levels...)
	}

	levels, warnings, err := compile(raws)
	if err != nil {
		return nil, warnings, err
	}

	cat, err := catalog.New(levels)
	if err != nil {
		return nil, warnings, fmt.Errorf("building catalog: %w", err)
	}
	return cat, warnings, nil
}

// sourceFiles resolves path into the ordered list of files to read.
// A directory yields its level files in lexical order.
func sourceFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading levels %s: %w", path, err)
	}
	if !info.IsDir() {
		if !sourceExts[strings.ToLower(filepath.Ext(path))] {
			return nil, fmt.Errorf("unsupported level file %s", path)
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading level directory %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !sourceExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no level files found in %s", path)
	}
	sort.Strings(files)
	return files, nil
}

// readSource parses one file into raw levels.
func readSource(path string) ([]rawLevel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		return readLua(data, name)
	}
	return readYAML(data, name)
}
