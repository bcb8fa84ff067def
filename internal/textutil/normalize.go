package textutil

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeTitle converts s to NFC and collapses runs of whitespace into a
// single space. Plex and Jellyfin may store the same accented title in
// different normalization forms.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}
