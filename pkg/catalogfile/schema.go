// pkg/catalogfile/schema.go
package catalogfile

import "github.com/techvna-coder/ata-wo-analyzer/internal/catalog"

// File is the on-disk ATA catalog artifact consumed by the catalog
// builder.
type File struct {
	Version   string          `json:"version"`
	UpdatedAt string          `json:"updated_at"`
	Systems   []catalog.Entry `json:"systems"`
}
