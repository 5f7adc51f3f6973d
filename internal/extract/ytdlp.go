package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Innoddu/speakflow/internal/pipeline"
)

// YtDlp fetches caption tracks with the yt-dlp subprocess. It is the
// highest-fidelity source: yt-dlp negotiates both uploaded and auto-generated
// tracks and converts them to SRT locally.
type YtDlp struct {
	// Langs is the caption language preference order, e.g. en, en-US.
	Langs []string
}

func (y *YtDlp) Name() string { return "yt-dlp" }

// Fetch downloads subtitle files into a temp dir and parses the first one
// that yields cues.
func (y *YtDlp) Fetch(ctx context.Context, videoID string) ([]pipeline.Cue, error) {
	if _, err := exec.LookPath("yt-dlp"); err != nil {
		return nil, fmt.Errorf("yt-dlp not found: %w", err)
	}

	dir, err := os.MkdirTemp("", "speakflow-subs-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	langs := y.Langs
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	cmd := exec.CommandContext(ctx,
		"yt-dlp",
		"--skip-download",
		"--write-subs", "--write-auto-subs",
		"--sub-langs", strings.Join(langs, ","),
		"--convert-subs", "srt",
		"-o", filepath.Join(dir, "%(id)s"),
		"https://www.youtube.com/watch?v="+videoID,
	)
	cmd.WaitDelay = 5 * time.Second

	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w\n%s", err, strings.TrimSpace(string(out)))
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.srt"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("yt-dlp wrote no subtitle files")
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if cues := pipeline.ParseSRT(string(data)); len(cues) > 0 {
			return cues, nil
		}
	}
	return nil, fmt.Errorf("subtitle files contained no parsable cues")
}
