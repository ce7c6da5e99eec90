// Package ata provides canonicalization helpers for ATA chapter/section codes
// and manual task numbers.
package ata

import (
	"regexp"
	"strings"
)

var (
	digitsOnly   = regexp.MustCompile(`\D+`)
	ata04Pattern = regexp.MustCompile(`^\d{2}-\d{2}$`)
	nonTaskChars = regexp.MustCompile(`[^\d-]`)
)

// Normalize04 canonicalizes any loosely formatted ATA code to "AA-BB".
// It strips non-digit characters and keeps the first four digits. Inputs that
// cannot produce four digits return "" — the empty string is the absent value
// everywhere across the pipeline boundary.
func Normalize04(s string) string {
	if s == "" {
		return ""
	}

	digits := digitsOnly.ReplaceAllString(strings.TrimSpace(s), "")
	if len(digits) < 4 {
		return ""
	}

	return digits[:2] + "-" + digits[2:4]
}

// Valid04 reports whether s is already in canonical "AA-BB" form.
func Valid04(s string) bool {
	return ata04Pattern.MatchString(s)
}

// NormalizeTask reformats a digit/dash task reference into the standard
// AA-BB-CC[-DDD[-EEE]] layout. Existing dash grouping is respected; a
// contiguous digit string is split positionally into 2-2-2-3-3 groups.
// Missing trailing groups are padded with "00" up to three groups, and at
// most five groups are kept.
func NormalizeTask(task string) string {
	clean := nonTaskChars.ReplaceAllString(task, "")

	var parts []string
	if strings.Contains(clean, "-") {
		parts = strings.Split(clean, "-")
	} else {
		if len(clean) >= 2 {
			parts = append(parts, clean[0:2])
		}
		if len(clean) >= 4 {
			parts = append(parts, clean[2:4])
		}
		if len(clean) >= 6 {
			parts = append(parts, clean[4:6])
		}
		if len(clean) >= 9 {
			parts = append(parts, clean[6:9])
		}
		if len(clean) >= 12 {
			parts = append(parts, clean[9:12])
		}
	}

	for len(parts) < 3 {
		parts = append(parts, "00")
	}

	if len(parts) > 5 {
		parts = parts[:5]
	}

	return strings.Join(parts, "-")
}
