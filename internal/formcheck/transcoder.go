package formcheck

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/fitlog/internal/telemetry/tracing"
)

// Transcoder shrinks uploaded clips with ffmpeg before they are sent
// off for analysis. One invocation per upload, no retries.
type Transcoder struct {
	FfmpegPath  string
	ScaleWidth  int
	CRF         int
	Preset      string
	ClipSeconds int
}

func NewTranscoder(ffmpegPath string, scaleWidth, crf int, preset string, clipSeconds int) *Transcoder {
	return &Transcoder{
		FfmpegPath:  ffmpegPath,
		ScaleWidth:  scaleWidth,
		CRF:         crf,
		Preset:      preset,
		ClipSeconds: clipSeconds,
	}
}

// Transcode re-encodes the source clip and returns the path of the
// compressed file, derived from the source path.
func (t *Transcoder) Transcode(ctx context.Context, src string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "formcheck.transcode")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	dst := strings.TrimSuffix(src, filepath.Ext(src)) + "_compressed.mp4"
	args := t.ffmpegArgs(src, dst)
	span.SetAttributes(attribute.String("ffmpeg.args", strings.Join(args, " ")))

	log.Debugf("transcoding %s -> %s", src, dst)

	cmd := exec.CommandContext(ctx, t.FfmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
	}

	return dst, nil
}

func (t *Transcoder) ffmpegArgs(src, dst string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", src,
		"-t", strconv.Itoa(t.ClipSeconds),
		"-vf", fmt.Sprintf("scale=%d:-2", t.ScaleWidth),
		"-c:v", "libx264",
		"-crf", strconv.Itoa(t.CRF),
		"-preset", t.Preset,
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		dst,
	}
}
