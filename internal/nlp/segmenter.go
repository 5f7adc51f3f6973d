// Package nlp wraps an external sentence boundary detector behind the
// pipeline.Segmenter interface. The detector runs as a python helper using
// NLTK's punkt tokenizer; when the helper cannot run, callers get a typed
// unavailability error and fall back to the heuristic splitter.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/Innoddu/speakflow/internal/pipeline"
)

const segmentScript = `
import sys, json
import nltk
text = sys.stdin.read()
print(json.dumps(nltk.sent_tokenize(text)))
`

// PunktSegmenter shells out to python/NLTK for sentence segmentation.
// Availability is probed lazily on first use, not at startup: the result of
// the probe is cached, and an unavailable helper yields a typed error rather
// than a silent behavior switch.
type PunktSegmenter struct {
	Python  string
	Timeout time.Duration

	probeOnce sync.Once
	probeErr  error
}

// NewPunktSegmenter creates a segmenter using the given python interpreter
// (python3 when empty) with a per-call timeout.
func NewPunktSegmenter(python string, timeout time.Duration) *PunktSegmenter {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &PunktSegmenter{Python: python, Timeout: timeout}
}

// Available reports whether the helper can run, probing on first call.
func (s *PunktSegmenter) Available() bool {
	s.probeOnce.Do(func() {
		if _, err := exec.LookPath(s.Python); err != nil {
			s.probeErr = fmt.Errorf("%s not found: %w", s.Python, err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
		defer cancel()
		cmd := exec.CommandContext(ctx, s.Python, "-c", "import nltk")
		if out, err := cmd.CombinedOutput(); err != nil {
			s.probeErr = fmt.Errorf("nltk import failed: %w (%s)", err, strings.TrimSpace(string(out)))
		}
	})
	if s.probeErr != nil {
		slog.Debug("punkt segmenter unavailable", "err", s.probeErr)
	}
	return s.probeErr == nil
}

// Segment tokenizes text into sentences via the helper subprocess.
func (s *PunktSegmenter) Segment(ctx context.Context, text string) ([]string, error) {
	if !s.Available() {
		return nil, fmt.Errorf("punkt: %w", pipeline.ErrSegmenterUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.Python, "-c", segmentScript)
	cmd.Stdin = strings.NewReader(text)
	cmd.WaitDelay = 5 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("punkt segmenter timed out: %w", ctx.Err())
		}
		return nil, fmt.Errorf("punkt segmenter failed: %w (stderr: %s)",
			err, strings.TrimSpace(stderr.String()))
	}

	var sentences []string
	if err := json.Unmarshal(stdout.Bytes(), &sentences); err != nil {
		return nil, fmt.Errorf("parse segmenter output: %w", err)
	}
	return sentences, nil
}

var _ pipeline.Segmenter = (*PunktSegmenter)(nil)
