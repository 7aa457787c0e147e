// Package wordparser reads the plain text word list format: one pair per
// line, optionally numbered like "12. ", term and translation split by a
// separator.
//
//	das Haus = house
//	Hund;dog
//	Katze -> cat
//	Maus=mouse
package wordparser

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	numPrefix = regexp.MustCompile(`^\d+[.)]\s*`)
	// On a tie the separator listed first wins.
	separators = []string{"\t", " — ", " – ", " = ", " => ", " -> ", " - ", ";", "=>", "->", "="}
)

func normalize(line string) string {
	line = strings.ReplaceAll(line, "\u202F", " ")
	line = strings.ReplaceAll(line, "\u00A0", " ")
	line = strings.TrimSpace(line)
	return numPrefix.ReplaceAllString(line, "")
}

// Comment reports lines that carry no entry: blanks and # comments.
func Comment(line string) bool {
	line = strings.TrimSpace(line)
	return line == "" || strings.HasPrefix(line, "#")
}

// ParseLine splits one entry. The first separator found wins, so
// translations may contain later separators.
func ParseLine(line string) (term, translation string, ok bool) {
	line = normalize(line)
	if line == "" {
		return "", "", false
	}

	best := -1
	var sep string
	for _, s := range separators {
		if i := strings.Index(line, s); i > 0 && (best == -1 || i < best) {
			best, sep = i, s
		}
	}
	if best == -1 {
		return "", "", false
	}

	term = strings.TrimSpace(line[:best])
	translation = strings.TrimSpace(line[best+len(sep):])
	if term == "" || translation == "" {
		return "", "", false
	}
	return term, translation, true
}

// LevelFromFilename takes the level from the file name up to the first
// underscore or dot: "a1_animals.txt" is level "A1".
func LevelFromFilename(path string) string {
	name := filepath.Base(path)
	if i := strings.IndexAny(name, "_."); i >= 0 {
		name = name[:i]
	}
	return strings.ToUpper(strings.TrimSpace(name))
}
