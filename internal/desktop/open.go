package desktop

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener opens URLs in the user's browser.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// SystemOpener uses the platform URL handler.
type SystemOpener struct{}

// Open implements Opener.
func (SystemOpener) Open(ctx context.Context, url string) error {
	name, args := openCommand(runtime.GOOS, url)
	if err := exec.CommandContext(ctx, name, args...).Start(); err != nil {
		return fmt.Errorf("opening %s: %w", url, err)
	}
	return nil
}

func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
