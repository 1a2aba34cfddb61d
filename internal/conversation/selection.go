package conversation

import (
	"regexp"
	"strconv"
	"strings"

	"telemetry_backend/internal/content"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

// resolveSelection maps the operator's raw reply onto one of the offered
// options. Accepted forms: a bare 1-based number, a "2. Label" echo of the
// numbered menu, or the option text itself case-insensitively.
func resolveSelection(raw string, options []string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}

	if digitsOnly.MatchString(value) {
		index, err := strconv.Atoi(value)
		if err == nil && index >= 1 && index <= len(options) {
			return options[index-1], true
		}
		return "", false
	}

	if dot := strings.Index(value, "."); dot > 0 {
		numeric := strings.TrimSpace(value[:dot])
		if digitsOnly.MatchString(numeric) {
			index, err := strconv.Atoi(numeric)
			if err == nil && index >= 1 && index <= len(options) {
				return options[index-1], true
			}
		}
	}

	for _, option := range options {
		if strings.EqualFold(option, value) {
			return option, true
		}
	}
	return "", false
}

// itemCode maps a menu label to the stable code the bot's flow logic
// branches on. Positions are fixed by convention in the tenant's item
// configuration; anything beyond the known four falls back to a normalized
// form of the label.
func itemCode(selectedLabel string, options []string) string {
	index := 0
	for i, option := range options {
		if strings.EqualFold(option, selectedLabel) {
			index = i + 1
			break
		}
	}

	switch index {
	case 1:
		return "readingSubmission"
	case 2:
		return "channelChange"
	case 3:
		return "meterChange"
	case 4:
		return "languageChange"
	default:
		return content.NormalizeLanguageKey(selectedLabel)
	}
}

// numberedMenu folds an option list under a prompt as a numbered text menu.
func numberedMenu(prompt string, options []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(prompt))
	for i, option := range options {
		b.WriteString("\n")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(option)
	}
	return b.String()
}
