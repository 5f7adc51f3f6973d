// Package extract obtains raw caption cues for a video by trying several
// sources in a fixed priority order, short-circuiting on the first one that
// yields usable cues.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Innoddu/speakflow/internal/pipeline"
)

// Method is one way of obtaining cues for a video.
type Method interface {
	Name() string
	Fetch(ctx context.Context, videoID string) ([]pipeline.Cue, error)
}

// Attempt records one failed extraction method for diagnostics.
type Attempt struct {
	Method string `json:"method"`
	Reason string `json:"reason"`
}

// NoCaptionSourceError reports that every extraction method was exhausted
// without usable cues. It carries the per-method failure reasons so the
// caller can surface them.
type NoCaptionSourceError struct {
	VideoID  string
	Attempts []Attempt
}

func (e *NoCaptionSourceError) Error() string {
	reasons := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		reasons[i] = a.Method + ": " + a.Reason
	}
	return fmt.Sprintf("no caption source for %s (tried %s)",
		e.VideoID, strings.Join(reasons, "; "))
}

// Orchestrator tries extraction methods in order with a per-attempt timeout.
type Orchestrator struct {
	methods        []Method
	attemptTimeout time.Duration
}

// NewOrchestrator creates an orchestrator over the given methods, tried in
// slice order. attemptTimeout bounds each method so a hung subprocess cannot
// block the whole request.
func NewOrchestrator(attemptTimeout time.Duration, methods ...Method) *Orchestrator {
	if attemptTimeout <= 0 {
		attemptTimeout = 30 * time.Second
	}
	return &Orchestrator{methods: methods, attemptTimeout: attemptTimeout}
}

// Extract returns the first method's cues along with the method name. Errors
// from individual attempts are logged and collected, never propagated; only
// total exhaustion returns an error, and that error is *NoCaptionSourceError.
func (o *Orchestrator) Extract(ctx context.Context, videoID string) ([]pipeline.Cue, string, error) {
	var attempts []Attempt

	for _, method := range o.methods {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		cues, err := o.tryMethod(ctx, method, videoID)
		if err != nil {
			slog.Warn("extraction method failed",
				"method", method.Name(), "video", videoID, "err", err)
			attempts = append(attempts, Attempt{Method: method.Name(), Reason: err.Error()})
			continue
		}

		slog.Info("extraction succeeded",
			"method", method.Name(), "video", videoID, "cues", len(cues))
		return cues, method.Name(), nil
	}

	return nil, "", &NoCaptionSourceError{VideoID: videoID, Attempts: attempts}
}

func (o *Orchestrator) tryMethod(ctx context.Context, method Method, videoID string) ([]pipeline.Cue, error) {
	ctx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
	defer cancel()

	cues, err := method.Fetch(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("no usable cues")
	}
	return cues, nil
}
