package catalogfile

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techvna-coder/ata-wo-analyzer/internal/catalog"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ata_catalog.json")

	f := &File{
		Version: "1.0",
		Systems: []catalog.Entry{
			{ATA04: "21-26", SystemName: "Air Conditioning Pack", Keywords: []string{"pack", "overheat"}},
		},
	}
	require.NoError(t, Save(path, f))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Systems, 1)
	assert.Equal(t, "21-26", loaded.Systems[0].ATA04)
}

func TestValidate(t *testing.T) {
	valid := &File{Systems: []catalog.Entry{
		{ATA04: "21-26", SystemName: "Air Conditioning Pack"},
		{ATA04: "32-47", SystemName: "Brake Temperature"},
	}}
	assert.NoError(t, valid.Validate())

	assert.Error(t, (&File{Systems: []catalog.Entry{{ATA04: "2126", SystemName: "x"}}}).Validate())
	assert.Error(t, (&File{Systems: []catalog.Entry{{ATA04: "21-26"}}}).Validate())
	assert.Error(t, (&File{Systems: []catalog.Entry{
		{ATA04: "21-26", SystemName: "a"},
		{ATA04: "21-26", SystemName: "b"},
	}}).Validate())
}
