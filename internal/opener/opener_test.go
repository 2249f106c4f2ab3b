package opener

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserOpensHTTPURLs(t *testing.T) {
	t.Parallel()

	var opened []string
	b := &Browser{open: func(u string) error {
		opened = append(opened, u)
		return nil
	}}

	require.NoError(t, b.OpenURL(context.Background(), "https://wa.me/123?text=hi"))
	assert.Equal(t, []string{"https://wa.me/123?text=hi"}, opened)
}

func TestBrowserRejectsOtherSchemes(t *testing.T) {
	t.Parallel()

	b := &Browser{open: func(string) error {
		t.Fatalf("open should not be called")
		return nil
	}}

	assert.Error(t, b.OpenURL(context.Background(), "file:///etc/passwd"))
}

func TestBrowserWrapsOpenFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("xdg-open missing")
	b := &Browser{open: func(string) error { return cause }}

	err := b.OpenURL(context.Background(), "https://www.google.com")
	require.ErrorIs(t, err, cause)
}

func TestBrowserHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Browser{open: func(string) error { return nil }}

	require.ErrorIs(t, b.OpenURL(ctx, "https://www.google.com"), context.Canceled)
}
