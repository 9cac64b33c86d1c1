// Package textutils holds small string constants shared across the other
// packages so they don't each redeclare the same literals.
package textutils

const (
	// EmptyStr is the empty string.
	EmptyStr = ""
	// NewLineString is a single newline.
	NewLineString = "\n"
	// WhiteSpaceStr is a single space.
	WhiteSpaceStr = " "
	// ColonStr is a colon.
	ColonStr = ":"
	// SemiColonStr is a semicolon.
	SemiColonStr = ";"
	// EqualStr is an equals sign.
	EqualStr = "="
	// PeriodStr is a period.
	PeriodStr = "."
	// ForwardSlashStr is a forward slash.
	ForwardSlashStr = "/"
)
