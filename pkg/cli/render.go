package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/platinummonkey/switcher/pkg/plugins"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	okStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	errorBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1)

	errorTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// renderTable renders rows under headers with a rounded border
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return t.Render()
}

// RenderError formats err as the message shown when startup fails
func RenderError(err error) string {
	var body strings.Builder
	body.WriteString(errorTitleStyle.Render("Switcher cannot start"))
	body.WriteString("\n\n")
	body.WriteString(err.Error())

	var le *plugins.LoadError
	if errors.As(err, &le) {
		if hint := hintFor(le); hint != "" {
			body.WriteString("\n\n")
			body.WriteString(mutedStyle.Render(hint))
		}
	}

	body.WriteString("\n\n")
	body.WriteString(mutedStyle.Render(fmt.Sprintf("exit code %d", plugins.ExitCode(err))))

	return errorBoxStyle.Render(body.String())
}

func hintFor(le *plugins.LoadError) string {
	switch le.Kind {
	case plugins.KindNoEnginesInstalled:
		return "Install at least one engine below the Engines directory."
	case plugins.KindMissingIdentifier, plugins.KindMalformedIdentifier:
		return "Each descriptor needs an ID key holding a GUID, e.g. ID = {6f1c2a4e-8d5b-4c1e-9a37-2b0f5d8e7c13}."
	case plugins.KindMissingEngineReference, plugins.KindUnknownEngineReference:
		return "The Engine key of Switch.ini must name the ID of an installed engine."
	case plugins.KindDuplicateEngineIdentifier, plugins.KindDuplicateSwitchTypeIdentifier:
		return "Two plugins share the same ID; remove one of them."
	case plugins.KindIsolationSetupFailed, plugins.KindIsolationActivationFailed:
		return "Check the engine's manifest and the files it lists."
	default:
		return ""
	}
}
