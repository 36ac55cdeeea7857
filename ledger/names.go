package ledger

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName puts a staff name in canonical composed form (NFC) and
// trims surrounding whitespace. Pasted Vietnamese text often arrives in
// decomposed form, so two visually equal names only compare equal after this.
// No case folding is applied.
func NormalizeName(name string) string {
	return strings.TrimSpace(norm.NFC.String(name))
}

// SameName reports whether two names are equal after normalization.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}
