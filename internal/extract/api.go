package extract

import (
	"context"
	"fmt"

	"github.com/Innoddu/speakflow/internal/pipeline"
	"github.com/Innoddu/speakflow/internal/youtube"
)

// CaptionAPI downloads caption tracks through the catalog API. Uploaded
// tracks are preferred over auto-generated ("asr") ones.
type CaptionAPI struct {
	Client *youtube.Client
	Langs  []string
}

func (c *CaptionAPI) Name() string { return "caption-api" }

// Fetch lists the video's caption tracks, picks the best English one, and
// parses the downloaded SRT.
func (c *CaptionAPI) Fetch(ctx context.Context, videoID string) ([]pipeline.Cue, error) {
	tracks, err := c.Client.ListCaptionTracks(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("video has no caption tracks")
	}

	langs := c.Langs
	if len(langs) == 0 {
		langs = []string{"en"}
	}

	track, ok := pickTrack(tracks, langs)
	if !ok {
		return nil, fmt.Errorf("no English caption track among %d tracks", len(tracks))
	}

	raw, err := c.Client.DownloadCaption(ctx, videoID, track.Language, "srt")
	if err != nil {
		return nil, err
	}

	cues := pipeline.ParseSRT(raw)
	if len(cues) == 0 {
		return nil, fmt.Errorf("caption track %s parsed to no cues", track.ID)
	}
	return cues, nil
}

// pickTrack selects the first preferred language, favoring uploaded tracks
// over auto-generated ones within the same language.
func pickTrack(tracks []youtube.CaptionTrack, langs []string) (youtube.CaptionTrack, bool) {
	for _, lang := range langs {
		var asr *youtube.CaptionTrack
		for i, t := range tracks {
			if t.Language != lang {
				continue
			}
			if t.Kind != "asr" {
				return t, true
			}
			if asr == nil {
				asr = &tracks[i]
			}
		}
		if asr != nil {
			return *asr, true
		}
	}
	return youtube.CaptionTrack{}, false
}
