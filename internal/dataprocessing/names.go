package dataprocessing

import (
	"regexp"
	"strings"
)

var (
	honorifics = regexp.MustCompile(`\bMiss\b|\bDr\.`)
	spaceRuns  = regexp.MustCompile(` {2,}`)
)

// CleanName tidies an employee name: a space after every comma, the titles
// "Miss" and "Dr." removed, remaining periods removed and space runs
// collapsed.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, ",", ", ")
	name = honorifics.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, ".", "")
	name = spaceRuns.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
