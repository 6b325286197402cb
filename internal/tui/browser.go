package tui

import (
	"io"

	"github.com/pkg/browser"
)

func init() {
	// The monitor owns the terminal; handler output would corrupt the screen
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// OpenBrowser opens url with the platform's default handler
func OpenBrowser(url string) error {
	return browser.OpenURL(url)
}
