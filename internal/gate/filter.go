// internal/gate/filter.go
package gate

import (
	"fmt"
	"regexp"
	"strings"
)

// defectOverridePatterns name failure indicators that force the defect
// verdict even when routine-maintenance wording appears in the same text.
var defectOverridePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bfailure\b`),
	regexp.MustCompile(`\bfailed\b`),
	regexp.MustCompile(`\bfault\b`),
	regexp.MustCompile(`\bfaulty\b`),
	regexp.MustCompile(`\bleak(ing|age)?\b`),
	regexp.MustCompile(`\boverheat(ing|ed)?\b`),
	regexp.MustCompile(`\bvibration\b`),
	regexp.MustCompile(`\becam\b`),
	regexp.MustCompile(`\beicas\b`),
	regexp.MustCompile(`\bcas\b`),
	regexp.MustCompile(`\bwarning\b`),
	regexp.MustCompile(`\bsmoke\b`),
	regexp.MustCompile(`\binoperative\b`),
	regexp.MustCompile(`\binop\b`),
	regexp.MustCompile(`\bunserviceable\b`),
	regexp.MustCompile(`\bu/s\b`),
	regexp.MustCompile(`\bdefect(ive)?\b`),
	regexp.MustCompile(`\bdamage(d)?\b`),
	regexp.MustCompile(`\bbroken\b`),
	regexp.MustCompile(`\bcrack(ed)?\b`),
	regexp.MustCompile(`\bcorrosion\b`),
	regexp.MustCompile(`\berror\b`),
	regexp.MustCompile(`\babnormal\b`),
	regexp.MustCompile(`\bmalfunction\b`),
	regexp.MustCompile(`\bnot working\b`),
	regexp.MustCompile(`\bout of tolerance\b`),
	regexp.MustCompile(`\bexceed(ed|s)? limit\b`),
	regexp.MustCompile(`\bhigh (temperature|pressure|vibration)\b`),
	regexp.MustCompile(`\blow (pressure|oil|fuel)\b`),
	regexp.MustCompile(`\bcontamination\b`),
	regexp.MustCompile(`\bwear (beyond|exceeds)\b`),
	regexp.MustCompile(`\bnoise\b`),
	regexp.MustCompile(`\bunusual (noise|sound|smell)\b`),
}

// nonDefectPatterns name routine maintenance activity. They are only
// consulted when no override pattern fired.
var nonDefectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bclean(ing|ed)?\b`),
	regexp.MustCompile(`\blubrication\b`),
	regexp.MustCompile(`\bservicing\b`),
	regexp.MustCompile(`\boil replenish(ment|ed)?\b`),
	regexp.MustCompile(`\bfirst aid kit\b`),
	regexp.MustCompile(`\b(tyre|tire) wear\b`),
	regexp.MustCompile(`\b(scheduled|routine) (maintenance|inspection|check)\b`),
	regexp.MustCompile(`\bsoftware (load(ing|ed)?|update)\b`),
	regexp.MustCompile(`\bnff\b`),
	regexp.MustCompile(`\bno fault found\b`),
	regexp.MustCompile(`\boperational check\b`),
	regexp.MustCompile(`\bfunctional (test|check)\b`),
	regexp.MustCompile(`\b(visual|general) inspection\b`),
	regexp.MustCompile(`\bperiodic (check|inspection)\b`),
	regexp.MustCompile(`\breplacement as per schedule\b`),
	regexp.MustCompile(`\blife limited part\b`),
	regexp.MustCompile(`\bllp replacement\b`),
	regexp.MustCompile(`\bcabin (cleaning|refurbishment)\b`),
	regexp.MustCompile(`\bcosmetic repair\b`),
	regexp.MustCompile(`\bseat (cleaning|cover)\b`),
	regexp.MustCompile(`\bcarpet (cleaning|replacement)\b`),
	regexp.MustCompile(`\blavatory (cleaning|servicing)\b`),
	regexp.MustCompile(`\bgalley (cleaning|servicing)\b`),
	regexp.MustCompile(`\bpassenger (seat|entertainment) (cleaning|adjustment)\b`),
}

// Filter classifies work-order text as a technical defect or routine
// (non-defect) maintenance activity.
type Filter struct{}

func NewFilter() *Filter {
	return &Filter{}
}

// IsTechnicalDefect reports whether the combined description and action
// text describes a technical defect, with a human-readable reason.
//
// Override patterns are checked first: a failure indicator anywhere in
// the text makes the row a defect regardless of routine wording. Only
// then are the non-defect patterns consulted. Text matching neither
// list defaults to defect, so ambiguous rows are never silently dropped.
func (f *Filter) IsTechnicalDefect(description, action string) (bool, string) {
	combined := strings.ToLower(description + " " + action)

	for _, p := range defectOverridePatterns {
		if m := p.FindString(combined); m != "" {
			return true, fmt.Sprintf("Defect indicator found: '%s'", m)
		}
	}

	for _, p := range nonDefectPatterns {
		if m := p.FindString(combined); m != "" {
			return false, fmt.Sprintf("Routine maintenance: '%s'", m)
		}
	}

	return true, "Default: no non-defect pattern found"
}
