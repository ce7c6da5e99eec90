// internal/citation/extractor.go
package citation

import (
	"regexp"
	"strings"
)

// pattern couples a compiled regex with a name so extraction priority is an
// explicit, testable contract rather than incidental iteration order.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// Patterns are tried in strict priority order: a given pattern is scanned
// across the whole text for all occurrences before the next one runs, and a
// citation is only kept if its key has not already been produced by an
// earlier, more specific pattern.
var patterns = []pattern{
	// TSM 21-26-00, FIM 32-47-00-860-801, AMM 24-11-00
	{
		name: "prefixed-dashed",
		re:   regexp.MustCompile(`(?i)\b(TSM|FIM|AMM)\s*(\d{2})-(\d{2})-(\d{2})(?:-(\d{3}))?(?:-(\d{3}))?\b`),
	},
	// TSM21-26-00, TSM2126, TSM212600
	{
		name: "prefixed-compact",
		re:   regexp.MustCompile(`(?i)\b(TSM|FIM|AMM)(\d{2})-?(\d{2})-?(\d{2})(?:-?(\d{3}))?(?:-?(\d{3}))?\b`),
	},
	// Standalone: 21-26-00, optionally with subsections
	{
		name: "bare-numeric",
		re:   regexp.MustCompile(`\b(\d{2})-(\d{2})-(\d{2})(?:-(\d{3}))?(?:-(\d{3}))?\b`),
	},
	// With "Task" or "Ref" prefix
	{
		name: "task-ref",
		re:   regexp.MustCompile(`(?i)\b(?:task|ref|reference)\s*:?\s*(TSM|FIM|AMM)?\s*(\d{2})-?(\d{2})-?(\d{2})\b`),
	},
}

// manualTypeTokens maps recognized prefix tokens to manual kinds. "task"
// usually refers to the AMM, "ref" to the TSM.
var manualTypeTokens = map[string]ManualType{
	"TSM":  ManualTSM,
	"FIM":  ManualFIM,
	"AMM":  ManualAMM,
	"TASK": ManualAMM,
	"REF":  ManualTSM,
}

// Extractor finds manual references (TSM/FIM/AMM) in free text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns all manual citations found in text, in pattern-priority
// order, deduplicated by (manual type, task number).
func (e *Extractor) Extract(text string) []Citation {
	if text == "" {
		return nil
	}

	var citations []Citation
	seen := make(map[string]bool)

	for _, p := range patterns {
		for _, match := range p.re.FindAllStringSubmatch(text, -1) {
			c, ok := parseMatch(match)
			if !ok {
				continue
			}
			if seen[c.Key()] {
				continue
			}
			seen[c.Key()] = true
			citations = append(citations, c)
		}
	}

	return citations
}

// ExtractATA04 returns the ATA04 of the first citation in text, or "".
func (e *Extractor) ExtractATA04(text string) string {
	citations := e.Extract(text)
	if len(citations) == 0 {
		return ""
	}
	return citations[0].ATA04
}

// parseMatch converts a regex submatch into a Citation. The first group may
// carry an explicit manual-type token; remaining numeric groups are assigned
// positionally to chapter, section, subject and up to two subsections. A
// match lacking chapter or section is discarded.
func parseMatch(match []string) (Citation, bool) {
	groups := match[1:]

	manualType := ManualTSM // default when no explicit token is present
	if len(groups) > 0 && groups[0] != "" {
		if mt, ok := manualTypeTokens[strings.ToUpper(groups[0])]; ok {
			manualType = mt
		}
	}

	var numeric []string
	for _, g := range groups {
		if g != "" && isDigits(g) {
			numeric = append(numeric, g)
		}
	}

	if len(numeric) < 2 {
		return Citation{}, false
	}

	c := Citation{
		ManualType: manualType,
		Chapter:    numeric[0],
		Section:    numeric[1],
		Subject:    "00",
		RawMatch:   match[0],
	}
	if len(numeric) >= 3 {
		c.Subject = numeric[2]
	}
	if len(numeric) >= 4 {
		c.Subsection1 = numeric[3]
	}
	if len(numeric) >= 5 {
		c.Subsection2 = numeric[4]
	}

	taskParts := []string{c.Chapter, c.Section, c.Subject}
	if c.Subsection1 != "" {
		taskParts = append(taskParts, c.Subsection1)
	}
	if c.Subsection2 != "" {
		taskParts = append(taskParts, c.Subsection2)
	}
	c.TaskNumber = strings.Join(taskParts, "-")
	c.ATA04 = c.Chapter + "-" + c.Section

	return c, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
