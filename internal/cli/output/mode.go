package output

import "strings"

// OutputMode selects how command results are rendered.
type OutputMode string

// Output modes.
const (
	ModeAuto     OutputMode = "auto"     // text on a terminal, markdown otherwise
	ModeText     OutputMode = "text"     // styled tables for humans
	ModeMarkdown OutputMode = "markdown" // plain markdown for scripts and agents
	ModeJSON     OutputMode = "json"
)

// Modes lists every accepted mode.
func Modes() []OutputMode {
	return []OutputMode{ModeAuto, ModeText, ModeMarkdown, ModeJSON}
}

// Mode normalizes a user-supplied mode name. Empty means auto; "md" is an
// alias for markdown. Unknown names are returned unchanged so that
// validation can report them.
func Mode(s string) OutputMode {
	switch m := strings.ToLower(strings.TrimSpace(s)); m {
	case "":
		return ModeAuto
	case "md":
		return ModeMarkdown
	default:
		return OutputMode(m)
	}
}

// Valid reports whether m is a known mode.
func (m OutputMode) Valid() bool {
	switch m {
	case ModeAuto, ModeText, ModeMarkdown, ModeJSON:
		return true
	}
	return false
}
