// pkg/catalogfile/catalogfile.go
package catalogfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/techvna-coder/ata-wo-analyzer/internal/ata"
)

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func Save(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks every catalog entry carries a well-formed ATA04
// chapter and a system name.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Systems))
	for i, entry := range f.Systems {
		if !ata.Valid04(entry.ATA04) {
			return fmt.Errorf("entry %d: malformed ata04 %q", i, entry.ATA04)
		}
		if entry.SystemName == "" {
			return fmt.Errorf("entry %d (%s): missing system name", i, entry.ATA04)
		}
		if seen[entry.ATA04] {
			return fmt.Errorf("entry %d: duplicate chapter %s", i, entry.ATA04)
		}
		seen[entry.ATA04] = true
	}
	return nil
}
