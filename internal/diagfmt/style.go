package diagfmt

import (
	"github.com/fatih/color"

	"trans/internal/diag"
)

// Style tags a run of rendered text.
type Style uint8

const (
	NoStyle Style = iota
	StyleHeaderMsg
	StyleFileName
	StyleLineAndColumn
	StyleLineNumber
	StyleQuotation
	StyleUnderlinePrimary
	StyleUnderlineSecondary
	StyleLabelPrimary
	StyleLabelSecondary
	StyleOldSchoolNote
	StyleOldSchoolNoteText
	StyleErrorCode
	// уровни: цвет берётся от собственной серьёзности, а не от диагностики
	StyleLevelHelp
	StyleLevelNote
	StyleLevelWarning
	StyleLevelError
)

// LevelStyle returns the style of a severity tag.
func LevelStyle(sev diag.Severity) Style {
	switch sev {
	case diag.SevHelp:
		return StyleLevelHelp
	case diag.SevNote:
		return StyleLevelNote
	case diag.SevWarning:
		return StyleLevelWarning
	}
	return StyleLevelError
}

func levelColor(sev diag.Severity) color.Attribute {
	switch sev {
	case diag.SevHelp:
		return color.FgHiCyan
	case diag.SevNote:
		return color.FgHiGreen
	case diag.SevWarning:
		return color.FgHiYellow
	}
	return color.FgHiRed
}

// attributes maps a style to terminal attributes. Primary underlines and
// labels take the colour of the diagnostic being rendered.
func attributes(s Style, lvl diag.Severity) []color.Attribute {
	switch s {
	case StyleLineNumber, StyleUnderlineSecondary, StyleLabelSecondary:
		return []color.Attribute{color.Bold, color.FgHiBlue}
	case StyleErrorCode:
		return []color.Attribute{color.Bold, color.FgHiMagenta}
	case StyleOldSchoolNote:
		return []color.Attribute{color.Bold, color.FgHiGreen}
	case StyleOldSchoolNoteText, StyleHeaderMsg:
		return []color.Attribute{color.Bold}
	case StyleUnderlinePrimary, StyleLabelPrimary:
		return []color.Attribute{color.Bold, levelColor(lvl)}
	case StyleLevelHelp:
		return []color.Attribute{color.Bold, levelColor(diag.SevHelp)}
	case StyleLevelNote:
		return []color.Attribute{color.Bold, levelColor(diag.SevNote)}
	case StyleLevelWarning:
		return []color.Attribute{color.Bold, levelColor(diag.SevWarning)}
	case StyleLevelError:
		return []color.Attribute{color.Bold, levelColor(diag.SevError)}
	}
	return nil
}
