package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Innoddu/speakflow/internal/pipeline"
)

// scraperScript fetches the transcript with the youtube_transcript_api
// package, preferring the uploaded English track and falling back to the
// regional auto-generated ones. One JSON object per line on stdout.
const scraperScript = `
import sys, json
from youtube_transcript_api import YouTubeTranscriptApi

video_id = sys.argv[1]
try:
    transcript = YouTubeTranscriptApi.get_transcript(video_id, languages=['en'])
except Exception as e:
    try:
        transcript = YouTubeTranscriptApi.get_transcript(video_id, languages=['en-US', 'en-GB'])
    except Exception:
        raise e
for entry in transcript:
    print(json.dumps(entry))
`

// Scraper shells out to the python transcript-scraping library. It is the
// last resort: slower and more fragile than the other methods, but it can
// reach community captions the API will not serve.
type Scraper struct {
	Python string
}

func (s *Scraper) Name() string { return "transcript-scraper" }

// Fetch runs the scraper helper and decodes its JSON-lines output.
func (s *Scraper) Fetch(ctx context.Context, videoID string) ([]pipeline.Cue, error) {
	python := s.Python
	if python == "" {
		python = "python3"
	}
	if _, err := exec.LookPath(python); err != nil {
		return nil, fmt.Errorf("%s not found: %w", python, err)
	}

	cmd := exec.CommandContext(ctx, python, "-c", scraperScript, videoID)
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("scraper failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}

	var cues []pipeline.Cue
	scanner := bufio.NewScanner(&stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var cue pipeline.Cue
		if err := json.Unmarshal([]byte(line), &cue); err != nil {
			// One malformed entry does not invalidate the rest.
			continue
		}
		cue.Text = strings.TrimSpace(cue.Text)
		if cue.Text == "" || cue.Duration <= 0 {
			continue
		}
		cues = append(cues, cue)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read scraper output: %w", err)
	}
	return cues, nil
}
