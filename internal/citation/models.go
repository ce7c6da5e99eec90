// internal/citation/models.go
package citation

// ManualType identifies the kind of technical manual a citation points into.
type ManualType string

const (
	ManualTSM ManualType = "TSM" // Trouble Shooting Manual
	ManualFIM ManualType = "FIM" // Fault Isolation Manual
	ManualAMM ManualType = "AMM" // Aircraft Maintenance Manual
)

// Citation is a parsed manual reference extracted from rectification text.
type Citation struct {
	ManualType  ManualType `json:"manualType"`
	TaskNumber  string     `json:"taskNumber"`
	ATA04       string     `json:"ata04"`
	Chapter     string     `json:"chapter"`
	Section     string     `json:"section"`
	Subject     string     `json:"subject"`
	Subsection1 string     `json:"subsection1,omitempty"`
	Subsection2 string     `json:"subsection2,omitempty"`
	RawMatch    string     `json:"rawMatch"`
}

// Key returns the deduplication key: two matches referring to the same manual
// task are the same citation regardless of which pattern produced them.
func (c Citation) Key() string {
	return string(c.ManualType) + "-" + c.TaskNumber
}
