package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_TSMWithSpaces(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Performed troubleshooting per TSM 21-26-00")

	require.Len(t, citations, 1)
	assert.Equal(t, ManualTSM, citations[0].ManualType)
	assert.Equal(t, "21-26", citations[0].ATA04)
	assert.Equal(t, "21-26-00", citations[0].TaskNumber)
}

func TestExtract_TSMWithoutSpaces(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Ref TSM21-26-00")

	require.Len(t, citations, 1)
	assert.Equal(t, "21-26", citations[0].ATA04)
}

func TestExtract_CompactFormat(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Per TSM212600")

	require.Len(t, citations, 1)
	assert.Equal(t, "21-26", citations[0].ATA04)
	assert.Equal(t, ManualTSM, citations[0].ManualType)
}

func TestExtract_FIMWithSubsections(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Performed FIM 32-47-00-860-801")

	require.Len(t, citations, 1)
	assert.Equal(t, ManualFIM, citations[0].ManualType)
	assert.Equal(t, "32-47", citations[0].ATA04)
	assert.Equal(t, "860", citations[0].Subsection1)
	assert.Equal(t, "801", citations[0].Subsection2)
	assert.Equal(t, "32-47-00-860-801", citations[0].TaskNumber)
}

func TestExtract_AMM(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Replaced component per AMM 24-11-00")

	require.Len(t, citations, 1)
	assert.Equal(t, ManualAMM, citations[0].ManualType)
	assert.Equal(t, "24-11", citations[0].ATA04)
}

func TestExtract_StandaloneNumericDefaultsToTSM(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Performed task 21-26-00")

	require.Len(t, citations, 1)
	assert.Equal(t, "21-26", citations[0].ATA04)
	assert.Equal(t, ManualTSM, citations[0].ManualType)
}

func TestExtract_MultipleCitations(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Per TSM 21-26-00 and FIM 32-47-00")

	require.Len(t, citations, 2)
	assert.Equal(t, "21-26", citations[0].ATA04)
	assert.Equal(t, "32-47", citations[1].ATA04)
}

func TestExtract_NoCitations(t *testing.T) {
	e := NewExtractor()

	assert.Empty(t, e.Extract("Performed general inspection"))
	assert.Empty(t, e.Extract(""))
}

func TestExtract_PriorityDeduplication(t *testing.T) {
	e := NewExtractor()

	// The dashed TSM pattern and the bare-numeric pattern both cover this
	// text; the higher-priority pattern must win and the duplicate key from
	// the later pattern must be dropped silently.
	citations := e.Extract("TSM 21-26-00")

	require.Len(t, citations, 1)
	assert.Equal(t, ManualTSM, citations[0].ManualType)
	assert.Equal(t, "21-26-00", citations[0].TaskNumber)
}

func TestExtract_TaskKeyword(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("Completed task: 21-26-00")

	require.Len(t, citations, 1)
	assert.Equal(t, "21-26", citations[0].ATA04)
}

func TestExtract_CaseInsensitive(t *testing.T) {
	e := NewExtractor()

	citations := e.Extract("per tsm 21-26-00")

	require.Len(t, citations, 1)
	assert.Equal(t, ManualTSM, citations[0].ManualType)
}

func TestExtractATA04(t *testing.T) {
	e := NewExtractor()

	assert.Equal(t, "21-26", e.ExtractATA04("Per TSM 21-26-00"))
	assert.Equal(t, "", e.ExtractATA04("nothing here"))
}

func TestCitationKey(t *testing.T) {
	c := Citation{ManualType: ManualTSM, TaskNumber: "21-26-00"}
	assert.Equal(t, "TSM-21-26-00", c.Key())
}
