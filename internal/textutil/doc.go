// Package textutil provides text helpers for search titles and export file
// names.
//
// NormalizeTitle puts titles in NFC form with collapsed whitespace before they
// are sent as search keywords. Similarity gives a token-overlap score that is
// only reported alongside matches, never used to choose one. SanitizeFileName
// makes playlist titles safe to use as file names.
package textutil
