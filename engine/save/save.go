// Package save implements JSON serialization and deserialization of
// player progress.
package save

import (
	"encoding/json"
	"fmt"

	"github.com/nathoo/shellquest/engine/state"
	"github.com/nathoo/shellquest/types"
)

// FormatVersion is the current save format version.
const FormatVersion = 1

// SaveData is the JSON-serializable save format.
type SaveData struct {
	Version  int            `json:"version"`
	Progress types.Progress `json:"progress"`
}

// Encode serializes progress to indented JSON bytes.
func Encode(p *types.Progress) ([]byte, error) {
	data := SaveData{Version: FormatVersion, Progress: *p}
	return json.MarshalIndent(data, "", "  ")
}

// Decode deserializes JSON bytes into a progress record. Collections are
// never nil after decoding. Saves from a newer format are rejected.
func Decode(data []byte) (*types.Progress, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("decoding progress: %w", err)
	}
	if sd.Version > FormatVersion {
		return nil, fmt.Errorf("progress format version %d is newer than supported version %d",
			sd.Version, FormatVersion)
	}
	p := sd.Progress
	// The cursor is clamped by the engine once the catalog size is known.
	state.Normalize(&p, p.CurrentLevel)
	return &p, nil
}
