package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// BannerInfo is shown when the server starts
type BannerInfo struct {
	Name    string
	Version string
	Built   string
	URL     string
	Mode    string
}

// terminalWidth returns the width of stdout, defaulting to 80
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width == 0 {
		return 80
	}
	return width
}

// DisplayBanner prints the startup banner sized to the terminal
func DisplayBanner(info BannerInfo) {
	writeBanner(os.Stdout, info, terminalWidth())
}

func writeBanner(w io.Writer, info BannerInfo, width int) {
	switch {
	case width >= 70:
		const inner = 63
		line := strings.Repeat("═", inner)
		row := func(text string) {
			fmt.Fprintf(w, "║ %-*s ║\n", inner-2, text)
		}
		fmt.Fprintf(w, "\n╔%s╗\n", line)
		row(fmt.Sprintf("%s v%s", info.Name, info.Version))
		row("")
		row("Listening: " + info.URL)
		row("Mode:      " + info.Mode)
		row("Built:     " + info.Built)
		fmt.Fprintf(w, "╚%s╝\n\n", line)
	case width >= 40:
		fmt.Fprintf(w, "%s v%s\n%s\n", info.Name, info.Version, info.URL)
	default:
		fmt.Fprintln(w, info.URL)
	}
}
