package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jarvis/internal/ports"
)

func TestFFMPEGCaptureDeliversFrames(t *testing.T) {
	t.Parallel()

	// Two frames of four samples each: 0x4000 is 0.5, 0xC000 is -0.5.
	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\n"+
		"printf '\\x00\\x40\\x00\\x40\\x00\\x40\\x00\\x40'\n"+
		"printf '\\x00\\xc0\\x00\\xc0\\x00\\xc0\\x00\\xc0'\n"+
		"sleep 2\n")
	capture := NewFFMPEGCapture(script)

	session, err := capture.Start(context.Background(), ports.AudioConfig{FrameSize: 4})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	want := []float32{0.5, -0.5}
	for i, w := range want {
		select {
		case frame := <-session.Frames():
			if len(frame) != 4 {
				t.Fatalf("frame %d: expected 4 samples, got %d", i, len(frame))
			}
			for _, s := range frame {
				if s != w {
					t.Fatalf("frame %d: expected %v, got %v", i, w, frame)
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := session.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if _, ok := <-session.Frames(); ok {
		t.Fatalf("expected frames channel to be closed after stop")
	}
}

func TestFFMPEGCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
