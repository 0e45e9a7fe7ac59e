package player

import (
	"os/exec"
	"runtime"

	"github.com/pkg/errors"
)

// OpenURL hands a URL to the desktop's default browser.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	return errors.Wrapf(cmd.Start(), "failed to open %q", url)
}
