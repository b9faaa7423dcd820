package db

import (
	"strings"
	"unicode"
)

// Tokens lowercases s and splits it on any non-alphanumeric rune,
// returning a space-joined token string suitable for the search shadow
// table. "Foo_Bar v2" becomes "foo bar v2".
func Tokens(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}

// Slug turns a display name into a URL- and filesystem-safe key:
// lowercased, runs of non-alphanumerics collapsed to single hyphens.
func Slug(s string) string {
	return strings.ReplaceAll(Tokens(s), " ", "-")
}

// SearchRowFor builds the shadow index row mirroring a package. Callers
// must write it in the same transaction as the package row itself.
func SearchRowFor(p Package) PackageSearch {
	return PackageSearch{
		PackageID:    p.ID,
		GameID:       p.GameID,
		NameTokens:   Tokens(p.Name),
		OwnerTokens:  Tokens(p.Owner),
		DescTokens:   Tokens(p.Description),
		Downloads:    p.Downloads,
		IsNSFW:       p.IsNSFW,
		IsDeprecated: p.IsDeprecated,
	}
}
