package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Metadata is the subset of container/stream info the server needs to
// validate and register a video.
type Metadata struct {
	DurationSec     float64
	Width           int
	Height          int
	FPS             float64
	NumVideoFrames  int
	NumVideoStreams int
}

// CheckInstallation verifies if FFmpeg is installed and accessible
func CheckInstallation() error {
	cmd := exec.Command("ffmpeg", "-version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg is not installed or not in PATH: %w", err)
	}
	return nil
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
}

// Probe retrieves video metadata via ffprobe.
func Probe(ctx context.Context, videoPath string) (Metadata, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_entries", "stream=codec_type,width,height,r_frame_rate,nb_frames",
		"-count_frames",
		"-of", "json",
		videoPath,
	)

	output, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to probe video: %w", err)
	}

	var probed probeOutput
	if err := json.Unmarshal(output, &probed); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var meta Metadata
	meta.DurationSec, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	for _, s := range probed.Streams {
		if s.CodecType != "video" {
			continue
		}
		meta.NumVideoStreams++
		if meta.Width == 0 {
			meta.Width = s.Width
			meta.Height = s.Height
			meta.FPS = parseFrameRate(s.RFrameRate)
			meta.NumVideoFrames, _ = strconv.Atoi(s.NbFrames)
		}
	}
	return meta, nil
}

// Transcode normalizes an upload: seek, trim, H.264, even dimensions. All
// videos handed to the app share one format so frame indices are stable.
func Transcode(ctx context.Context, inPath, outPath string, seekSec, durationSec float64) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-ss", strconv.FormatFloat(seekSec, 'f', -1, 64),
		"-t", strconv.FormatFloat(durationSec, 'f', -1, 64),
		"-i", inPath,
		"-c:v", "libx264",
		"-preset", "fast",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-an",
		outPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("transcode failed: %w: %s", err, lastLine(out))
	}
	return nil
}

func parseFrameRate(r string) float64 {
	parts := strings.SplitN(r, "/", 2)
	if len(parts) != 2 {
		f, _ := strconv.ParseFloat(r, 64)
		return f
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}
