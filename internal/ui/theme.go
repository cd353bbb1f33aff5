package ui

import "charm.land/lipgloss/v2"

type Theme struct {
	Header      lipgloss.Style
	Status      lipgloss.Style
	PanelBorder lipgloss.Style
	PanelBody   lipgloss.Style
	Accent      lipgloss.Style
	Muted       lipgloss.Style
	Feature     lipgloss.Style
	EditArea    lipgloss.Style
	Cursor      lipgloss.Style
	Info        lipgloss.Style
	Warning     lipgloss.Style
	Error       lipgloss.Style
	Selected    lipgloss.Style
}

func DefaultTheme() Theme {
	return ThemeForVariant("night")
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "daylight":
		return daylightTheme()
	case "mono":
		return monoTheme()
	default:
		return nightTheme()
	}
}

func nightTheme() Theme {
	ink := lipgloss.Color("#0E1420")
	slate := lipgloss.Color("#1B2740")
	powder := lipgloss.Color("#EAF2FF")
	blue := lipgloss.Color("#5EEBFF")
	amber := lipgloss.Color("#FFC857")
	brick := lipgloss.Color("#FF6F91")
	mint := lipgloss.Color("#67F0A8")

	return Theme{
		Header: lipgloss.NewStyle().
			Background(ink).
			Foreground(powder).
			Padding(0, 1),
		Status: lipgloss.NewStyle().
			Background(slate).
			Foreground(powder).
			Padding(0, 1),
		PanelBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#4B5F8A")),
		PanelBody:   lipgloss.NewStyle().Foreground(powder),
		Accent:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#9CAAC6")),
		Feature:     lipgloss.NewStyle().Foreground(brick).Bold(true),
		EditArea:    lipgloss.NewStyle().Foreground(mint),
		Cursor:      lipgloss.NewStyle().Foreground(amber).Bold(true),
		Info:        lipgloss.NewStyle().Foreground(blue),
		Warning:     lipgloss.NewStyle().Foreground(amber).Bold(true),
		Error:       lipgloss.NewStyle().Foreground(brick).Bold(true),
		Selected:    lipgloss.NewStyle().Foreground(ink).Background(blue),
	}
}

func daylightTheme() Theme {
	paper := lipgloss.Color("#F4F6FA")
	night := lipgloss.Color("#1E2430")
	sky := lipgloss.Color("#2F6FD0")
	honey := lipgloss.Color("#B9770E")
	rose := lipgloss.Color("#B03A48")
	sage := lipgloss.Color("#2E8B57")

	return Theme{
		Header:      lipgloss.NewStyle().Background(sky).Foreground(paper).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(lipgloss.Color("#D9E1EE")).Foreground(night).Padding(0, 1),
		PanelBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#8A99B3")),
		PanelBody:   lipgloss.NewStyle().Foreground(night),
		Accent:      lipgloss.NewStyle().Foreground(sky).Bold(true),
		Muted:       lipgloss.NewStyle().Foreground(lipgloss.Color("#6B768A")),
		Feature:     lipgloss.NewStyle().Foreground(rose).Bold(true),
		EditArea:    lipgloss.NewStyle().Foreground(sage),
		Cursor:      lipgloss.NewStyle().Foreground(honey).Bold(true),
		Info:        lipgloss.NewStyle().Foreground(sky),
		Warning:     lipgloss.NewStyle().Foreground(honey).Bold(true),
		Error:       lipgloss.NewStyle().Foreground(rose).Bold(true),
		Selected:    lipgloss.NewStyle().Foreground(paper).Background(sky),
	}
}

func monoTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Header:      plain.Reverse(true).Padding(0, 1),
		Status:      plain.Padding(0, 1),
		PanelBorder: plain,
		PanelBody:   plain,
		Accent:      plain.Bold(true),
		Muted:       plain.Faint(true),
		Feature:     plain.Bold(true),
		EditArea:    plain,
		Cursor:      plain.Bold(true),
		Info:        plain,
		Warning:     plain.Bold(true),
		Error:       plain.Bold(true).Underline(true),
		Selected:    plain.Reverse(true),
	}
}
