package mailer

import (
	"html"
	"regexp"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render substitutes {{key}} placeholders. Unknown keys are left untouched so a
// typo in a template stays visible instead of silently vanishing.
func Render(text string, vars map[string]string, escape bool) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := vars[key]
		if !ok {
			return m
		}
		if escape {
			return html.EscapeString(v)
		}
		return v
	})
}

// Placeholders lists the distinct placeholder keys used in text, in order of appearance.
func Placeholders(text string) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range placeholder.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}

// knownPlaceholders are the variables some send path fills in.
var knownPlaceholders = map[string]bool{
	"participantName":  true,
	"participantEmail": true,
	"hackathonTitle":   true,
	"status":           true,
	"teamName":         true,
	"teamMembers":      true,
	"judgeName":        true,
	"judgeEmail":       true,
	"certificateCode":  true,
	"certificateUrl":   true,
}

// UnknownPlaceholders returns the keys in text that no sender ever fills.
func UnknownPlaceholders(text string) []string {
	var unknown []string
	for _, k := range Placeholders(text) {
		if !knownPlaceholders[k] {
			unknown = append(unknown, k)
		}
	}
	return unknown
}
