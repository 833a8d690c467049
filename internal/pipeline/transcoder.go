package pipeline

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Transcoder converts a downloaded voice note into an mp3 on disk.
type Transcoder interface {
	ToMP3(ctx context.Context, src, dst string) error
}

// FFmpegTranscoder shells out to an ffmpeg binary with a hard wall-clock
// limit so a wedged subprocess cannot stall the pipeline.
type FFmpegTranscoder struct {
	Bin     string
	Timeout time.Duration
}

func NewFFmpegTranscoder(bin string, timeout time.Duration) *FFmpegTranscoder {
	if bin == "" {
		bin = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FFmpegTranscoder{Bin: bin, Timeout: timeout}
}

func (t *FFmpegTranscoder) ToMP3(ctx context.Context, src, dst string) error {
	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, t.Bin, "-y", "-i", src, "-codec:a", "libmp3lame", "-q:a", "2", dst)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timed out after %s", t.Timeout)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, string(out))
	}
	// ffmpeg can exit zero without producing output on some inputs
	if _, statErr := os.Stat(dst); statErr != nil {
		return fmt.Errorf("ffmpeg produced no output: %w", statErr)
	}
	return nil
}
