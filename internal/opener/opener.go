// Package opener hands URLs to the desktop's default browser.
package opener

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/pkg/browser"
)

// Browser opens URLs with the system browser.
type Browser struct {
	open func(string) error
}

func NewBrowser(stdout, stderr io.Writer) *Browser {
	if stdout != nil {
		browser.Stdout = stdout
	}
	if stderr != nil {
		browser.Stderr = stderr
	}
	return &Browser{open: browser.OpenURL}
}

func (b *Browser) OpenURL(ctx context.Context, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	parsed, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", target, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return fmt.Errorf("refusing to open %q: unsupported scheme", target)
	}
	if err := b.open(target); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
