package service

import (
	"regexp"
	"strings"
)

// InvalidRecipient pairs a rejected entry with the reason it was rejected.
type InvalidRecipient struct {
	Number string `json:"number"`
	Reason string `json:"reason"`
}

// phonePattern accepts international numbers: optional +, 8 to 15 digits,
// no leading zero.
var phonePattern = regexp.MustCompile(`^\+?[1-9][0-9]{7,14}$`)

// MergeRecipients flattens all supplied sources into one list, normalizing
// formatting characters and dropping duplicates while preserving first-seen
// order.
func MergeRecipients(sources ...[]string) []string {
	seen := make(map[string]struct{})
	var merged []string

	for _, source := range sources {
		for _, raw := range source {
			number := normalizeNumber(raw)
			if number == "" {
				continue
			}
			if _, ok := seen[number]; ok {
				continue
			}
			seen[number] = struct{}{}
			merged = append(merged, number)
		}
	}

	return merged
}

// normalizeNumber strips whitespace and common phone formatting so that
// "+254 712-345 678" and "+254712345678" deduplicate to one entry.
func normalizeNumber(raw string) string {
	trimmed := strings.TrimSpace(raw)
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")
	return replacer.Replace(trimmed)
}

// PartitionRecipients splits a merged list into deliverable numbers and
// rejected entries with reasons. It is a pure function: the same input
// always partitions identically.
func PartitionRecipients(numbers []string) ([]string, []InvalidRecipient) {
	var valid []string
	var invalid []InvalidRecipient

	for _, number := range numbers {
		if reason := classify(number); reason != "" {
			invalid = append(invalid, InvalidRecipient{Number: number, Reason: reason})
			continue
		}
		valid = append(valid, number)
	}

	return valid, invalid
}

func classify(number string) string {
	if number == "" {
		return "empty number"
	}

	digits := strings.TrimPrefix(number, "+")
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "contains non-digit characters"
		}
	}

	switch {
	case len(digits) < 8:
		return "too short"
	case len(digits) > 15:
		return "too long"
	case !phonePattern.MatchString(number):
		return "not a valid phone number"
	}

	return ""
}
