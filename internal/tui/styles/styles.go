package styles

import "github.com/charmbracelet/lipgloss"

// Oxocarbon color scheme - IBM Carbon inspired
var (
	OxocarbonBase00 = lipgloss.Color("#262626") // UI elements
	OxocarbonBase01 = lipgloss.Color("#393939") // Borders, secondary UI
	OxocarbonBase03 = lipgloss.Color("#767676") // Muted elements
	OxocarbonBase04 = lipgloss.Color("#dde1e6") // Secondary foreground
	OxocarbonBase05 = lipgloss.Color("#f2f4f8") // Primary foreground
	OxocarbonWhite  = lipgloss.Color("#ffffff")

	OxocarbonBlue   = lipgloss.Color("#78a9ff")
	OxocarbonPink   = lipgloss.Color("#ee5396")
	OxocarbonRed    = lipgloss.Color("#ff5252")
	OxocarbonGreen  = lipgloss.Color("#42be65")
	OxocarbonPurple = lipgloss.Color("#be95ff") // main accent
	OxocarbonMauve  = lipgloss.Color("#d1aaff")
)

var (
	// Title style
	TitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonWhite).
			Background(OxocarbonPurple).
			Padding(0, 1).
			Bold(true)

	// Content kind badge next to the title
	KindBadgeStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase05).
			Background(OxocarbonBase01).
			Padding(0, 1)

	// One segment of the status line
	StatusSegmentStyle = lipgloss.NewStyle().
				Foreground(OxocarbonBase04).
				PaddingLeft(1)

	// Segment for a setting that differs from its default
	StatusActiveStyle = lipgloss.NewStyle().
				Foreground(OxocarbonGreen).
				PaddingLeft(1).
				Bold(true)

	// Dialog heading
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(OxocarbonMauve).
			Bold(true)

	// Help style
	HelpStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase03).
			Italic(true)

	// List styles
	NormalItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(OxocarbonBase05)

	SelectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(OxocarbonPurple).
				Bold(true)

	ActiveItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(OxocarbonGreen).
			Bold(true)

	// Next episode countdown banner
	CountdownStyle = lipgloss.NewStyle().
			Foreground(OxocarbonWhite).
			Background(OxocarbonBlue).
			Padding(0, 1).
			Bold(true)

	// Footer style for notices
	FooterStyle = lipgloss.NewStyle().
			Foreground(OxocarbonBase05).
			Background(OxocarbonBase01).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(OxocarbonRed).
			Bold(true)

	// Dialog box
	PopupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(OxocarbonPurple).
			Padding(0, 2).
			Background(OxocarbonBase00).
			Foreground(OxocarbonBase05)

	// Controls popover
	PopoverStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(OxocarbonPink).
			Padding(0, 1)
)
