// SPDX-License-Identifier: MPL-2.0

package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/modrt/modrt/internal/discovery"
	"github.com/modrt/modrt/pkg/modmeta"
)

// Color palette shared by all CLI output, tuned for dark terminals.
const (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorError     = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorHighlight = lipgloss.Color("#3B82F6")
	ColorVerbose   = lipgloss.Color("#9CA3AF")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// NameStyle is for module names.
	NameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHighlight)

	// VerboseStyle is for supplementary details.
	VerboseStyle = lipgloss.NewStyle().
			Foreground(ColorVerbose)

	// KeyStyle is for labels in key/value listings.
	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)

// roleStyle colors a module role.
func roleStyle(r modmeta.Role) lipgloss.Style {
	switch r {
	case modmeta.RoleSpecification:
		return lipgloss.NewStyle().Foreground(ColorPrimary)
	case modmeta.RoleImplementation:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	default:
		return VerboseStyle
	}
}

// diagnosticMarker returns the styled prefix for a diagnostic line.
func diagnosticMarker(s discovery.Severity) string {
	if s == discovery.SeverityError {
		return ErrorStyle.Render("✗")
	}
	return WarningStyle.Render("!")
}
