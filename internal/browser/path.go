package browser

import (
	"os/exec"

	"github.com/jmylchreest/iwsaver/internal/logger"
)

// browserCandidates lists Brave first, then Chrome and Chromium.
var browserCandidates = []string{
	"brave-browser",
	"brave",
	"/usr/bin/brave-browser",
	"/snap/bin/brave",
	"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
	`C:\Program Files\BraveSoftware\Brave-Browser\Application\brave.exe`,
	`C:\Program Files (x86)\BraveSoftware\Brave-Browser\Application\brave.exe`,

	"google-chrome-stable",
	"google-chrome",
	"chromium",
	"chromium-browser",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/chromium",
	"/snap/bin/chromium",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
	`C:\Program Files\Google\Chrome\Application\chrome.exe`,
	`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// FindBrowserPath returns the first Chromium-family browser found, or "" to
// let chromedp use its own lookup.
func FindBrowserPath() string {
	for _, name := range browserCandidates {
		if path, err := lookPath(name); err == nil {
			logger.Debug("found browser binary", "name", name, "path", path)
			return path
		}
	}
	logger.Warn("no Brave or Chrome binary found, falling back to chromedp defaults")
	return ""
}
