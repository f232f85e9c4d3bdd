package ui

import "github.com/charmbracelet/lipgloss"

// Palette keyed by what a colour means in the token lifecycle.
var (
	colorDone    = lipgloss.Color("#3DDC84") // verified, sent, deployed
	colorPending = lipgloss.Color("#F4B400") // unverified, needs attention
	colorFailed  = lipgloss.Color("#E5484D")
	colorHex     = lipgloss.Color("#4CC9F0") // addresses and tx hashes
	colorAccent  = lipgloss.Color("#B388FF") // titles, chain names
	colorDim     = lipgloss.Color("#6B7280")
	colorFrame   = lipgloss.Color("#2D3E50")
	colorCursor  = lipgloss.Color("#FF7AC6")
)

var (
	styleDone    = lipgloss.NewStyle().Foreground(colorDone).Bold(true)
	styleFailed  = lipgloss.NewStyle().Foreground(colorFailed).Bold(true)
	styleHex     = lipgloss.NewStyle().Foreground(colorHex)
	StyleWarning = lipgloss.NewStyle().Foreground(colorPending).Bold(true)
	StyleValue   = lipgloss.NewStyle().Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(colorDim)
	StyleChain   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	StyleTitle   = StyleChain.MarginBottom(1)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFrame).
			Padding(0, 1)

	StyleSelected = lipgloss.NewStyle().
			Background(colorCursor).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)
)

const bannerArt = `
  ┌┬┐┌─┐┬┌─┌─┐┌┐┌┌─┐┌─┐┬─┐┌─┐┌─┐
   │ │ │├┴┐├┤ │││├┤ │ │├┬┘│ ┬├┤
   ┴ └─┘┴ ┴└─┘┘└┘└  └─┘┴└─└─┘└─┘`

// Banner is printed once when the session starts.
func Banner(version string) string {
	return StyleChain.Render(bannerArt) + "\n" +
		StyleMeta.Render("   ERC-20 deploy, verify & manage  "+version) + "\n"
}

func Success(msg string) string { return styleDone.Render("✓ " + msg) }
func Warn(msg string) string    { return StyleWarning.Render("⚠ " + msg) }
func Err(msg string) string     { return styleFailed.Render("✗ " + msg) }

// Info marks a progress step, e.g. a forge stage starting.
func Info(msg string) string { return StyleChain.Render("+ ") + msg }

func Addr(a string) string      { return styleHex.Render(a) }
func Val(v string) string       { return StyleValue.Render(v) }
func Meta(m string) string      { return StyleMeta.Render(m) }
func ChainName(c string) string { return StyleChain.Render(c) }

// Status renders a registry verification status.
func Status(verified bool) string {
	if verified {
		return styleDone.Render("verified")
	}
	return StyleWarning.Render("unverified")
}

// TruncateAddr keeps the first 4 and last 4 hex digits: 0x1234…5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
