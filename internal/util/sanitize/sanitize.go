// Package sanitize cleans user-supplied item names and imported file names.
//
// This package removes problematic characters:
//   - Invisible Unicode characters (zero-width spaces, etc.)
//   - Line breaks and repeated whitespace in names
//   - Path separators and reserved characters in file names
package sanitize

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	reservedChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
)

// SanitizeName cleans a scene or sprite name typed by the user. Line breaks
// and whitespace runs collapse to single spaces.
func SanitizeName(name string) string {
	if name == "" {
		return name
	}

	name = removeInvisibleChars(name)
	name = whitespaceRun.ReplaceAllString(name, " ")

	return strings.TrimSpace(name)
}

// BaseName returns the name part of an imported file name: the extension and
// a trailing "#n" copy index are dropped. "cat#2.png" becomes "cat".
func BaseName(fileName string) string {
	fileName = SanitizeField(fileName)

	end := len(fileName)
	if dot := strings.LastIndex(fileName, "."); dot > 0 {
		end = dot
	}
	if hash := strings.LastIndex(fileName[:end], "#"); hash > 0 {
		end = hash
	}

	return fileName[:end]
}

// FileName makes fileName safe to create inside a single directory. Path
// separators and characters reserved on common filesystems become "_".
func FileName(fileName string) string {
	fileName = SanitizeField(fileName)
	fileName = reservedChars.ReplaceAllString(fileName, "_")

	if fileName == "." || fileName == ".." {
		return "_"
	}
	return fileName
}

// removeInvisibleChars removes zero-width and other invisible Unicode characters
func removeInvisibleChars(s string) string {
	invisibleChars := []string{
		"\u200B", // Zero-width space
		"\u200C", // Zero-width non-joiner
		"\u200D", // Zero-width joiner
		"\uFEFF", // Zero-width no-break space (BOM)
		"\u00AD", // Soft hyphen
		"\u2060", // Word joiner
		"\u180E", // Mongolian vowel separator
	}

	for _, char := range invisibleChars {
		s = strings.ReplaceAll(s, char, "")
	}

	return s
}

// SanitizeField removes invisible characters and surrounding whitespace
func SanitizeField(field string) string {
	if field == "" {
		return field
	}

	field = removeInvisibleChars(field)

	return strings.TrimSpace(field)
}
