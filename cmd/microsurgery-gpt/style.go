package main

import "github.com/charmbracelet/lipgloss"

type Style struct {
	Header         lipgloss.Style
	Disclaimer     lipgloss.Style
	UserMessage    lipgloss.Style
	ModelMessage   lipgloss.Style
	ErrorMessage   lipgloss.Style
	FocusedInput   lipgloss.Style
	UnfocusedInput lipgloss.Style
	Topic          lipgloss.Style
	Busy           lipgloss.Style
}

type BorderColors struct {
	User    string
	Model   string
	Error   string
	Focused string
	Muted   string
}

func DefaultStyles() *Style {
	lightModeColors := BorderColors{
		User:    "#87AFD7",
		Model:   "#CCCCCC",
		Error:   "#D70000",
		Focused: "#FFB6C1", // Light pink
		Muted:   "#888888",
	}

	darkModeColors := BorderColors{
		User:    "#5F87AF",
		Model:   "#444444",
		Error:   "#FF5F5F",
		Focused: "#DD7090", // Desaturated pink for dark mode
		Muted:   "#777777",
	}

	color := func(light, dark string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{Light: light, Dark: dark}
	}

	return &Style{
		Header: lipgloss.NewStyle().Bold(true).
			Foreground(color(lightModeColors.Focused, darkModeColors.Focused)),
		Disclaimer: lipgloss.NewStyle().Italic(true).
			Foreground(color(lightModeColors.Muted, darkModeColors.Muted)),
		UserMessage: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(color(lightModeColors.User, darkModeColors.User)),
		ModelMessage: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			BorderForeground(color(lightModeColors.Model, darkModeColors.Model)),
		ErrorMessage: lipgloss.NewStyle().Border(lipgloss.ThickBorder()).
			Padding(0, 1).
			Foreground(color(lightModeColors.Error, darkModeColors.Error)).
			BorderForeground(color(lightModeColors.Error, darkModeColors.Error)),
		FocusedInput: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			BorderForeground(color(lightModeColors.Focused, darkModeColors.Focused)),
		UnfocusedInput: lipgloss.NewStyle().Border(lipgloss.NormalBorder()).
			BorderForeground(color(lightModeColors.Model, darkModeColors.Model)),
		Topic: lipgloss.NewStyle().
			Foreground(color(lightModeColors.User, darkModeColors.User)),
		Busy: lipgloss.NewStyle().
			Foreground(color(lightModeColors.Muted, darkModeColors.Muted)),
	}
}
