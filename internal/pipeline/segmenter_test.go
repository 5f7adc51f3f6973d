package pipeline

import (
	"context"
	"reflect"
	"testing"
)

func TestHeuristicSegmenter_Segment(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"empty",
			"",
			nil,
		},
		{
			"single sentence",
			"Just one sentence here.",
			[]string{"Just one sentence here."},
		},
		{
			"multiple terminators",
			"First one. Second one! Third one?",
			[]string{"First one.", "Second one!", "Third one?"},
		},
		{
			"trailing fragment kept",
			"A full sentence. and then a trailing bit",
			[]string{"A full sentence.", "and then a trailing bit"},
		},
		{
			"abbreviation not split",
			"Dr. Smith arrived early. Everyone waited.",
			[]string{"Dr. Smith arrived early.", "Everyone waited."},
		},
		{
			"decimal number not split",
			"It costs 3.50 in total. Cheap enough.",
			[]string{"It costs 3.50 in total.", "Cheap enough."},
		},
		{
			"dotted abbreviation not split",
			"Use short clips e.g. music videos. Then practice.",
			[]string{"Use short clips e.g. music videos.", "Then practice."},
		},
		{
			"i.e. mid-sentence",
			"Pick the easy mode i.e. slower playback. It helps.",
			[]string{"Pick the easy mode i.e. slower playback.", "It helps."},
		},
		{
			"closing quote stays attached",
			`She said "stop." Then silence.`,
			[]string{`She said "stop."`, "Then silence."},
		},
	}

	seg := HeuristicSegmenter{}
	for _, tt := range tests {
		got, err := seg.Segment(context.Background(), tt.text)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
