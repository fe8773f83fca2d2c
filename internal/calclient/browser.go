package calclient

import (
	"fmt"
	"os/exec"
	"runtime"
)

// BrowserOpener opens URLs with the platform's default browser.
var BrowserOpener Opener = OpenerFunc(openBrowser)

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}

	return cmd.Start()
}
