package pipeline

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// srtTimeLine matches "HH:MM:SS,mmm --> HH:MM:SS,mmm". WebVTT-style dots are
// accepted too since yt-dlp emits either depending on the source track.
var srtTimeLine = regexp.MustCompile(
	`^(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

// markupTag strips inline formatting like <i> or <c.colorE5E5E5>.
var markupTag = regexp.MustCompile(`<[^>]*>`)

// ParseSRT parses subtitle text into ordered cues. Blocks whose timestamp
// line does not match the grammar are dropped; a document with no valid
// blocks yields an empty slice, never an error. "No usable transcript" is a
// caller decision, not a parser exception.
func ParseSRT(raw string) []Cue {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var cues []Cue
	for _, block := range strings.Split(raw, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}

		// The index line is optional; the timestamp line anchors the block.
		timeIdx := -1
		var m []string
		for i, line := range lines {
			if m = srtTimeLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
				timeIdx = i
				break
			}
		}
		if timeIdx < 0 || timeIdx == len(lines)-1 {
			continue
		}

		start := srtFieldsToSeconds(m[1], m[2], m[3], m[4])
		end := srtFieldsToSeconds(m[5], m[6], m[7], m[8])
		if end <= start {
			continue
		}

		text := strings.Join(lines[timeIdx+1:], " ")
		text = strings.TrimSpace(markupTag.ReplaceAllString(text, ""))
		if text == "" {
			continue
		}

		cues = append(cues, Cue{
			Text:     text,
			Start:    start,
			Duration: roundMillis(end - start),
		})
	}
	return cues
}

func srtFieldsToSeconds(h, m, s, ms string) float64 {
	hours, _ := strconv.Atoi(h)
	mins, _ := strconv.Atoi(m)
	secs, _ := strconv.Atoi(s)
	millis, _ := strconv.Atoi(ms)
	return float64(hours)*3600 + float64(mins)*60 + float64(secs) + float64(millis)/1000
}

// GenerateSRT renders cues back into SRT text.
func GenerateSRT(cues []Cue) string {
	if len(cues) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n",
			i+1, formatSRTTime(cue.Start), formatSRTTime(cue.End()), cue.Text)
		if i < len(cues)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// formatSRTTime converts seconds to SRT time format HH:MM:SS,mmm.
func formatSRTTime(seconds float64) string {
	millis := int(math.Round(math.Abs(seconds) * 1000))
	hours := millis / 3600000
	millis %= 3600000
	minutes := millis / 60000
	millis %= 60000
	secs := millis / 1000
	millis %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// roundMillis rounds a seconds value to millisecond precision.
func roundMillis(s float64) float64 {
	return math.Round(s*1000) / 1000
}
