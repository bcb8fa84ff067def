package textutil

import "strings"

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed. Returns "untitled" when nothing is left.
func SanitizeFileName(name string) string {
	out := strings.TrimSpace(fileNameReplacer.Replace(NormalizeTitle(name)))
	out = strings.Trim(out, ".")
	if out == "" {
		return "untitled"
	}
	return out
}
