package subtitles_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelforge/internal/episode"
	"reelforge/internal/subtitles"
)

func roundTripShots() []episode.Shot {
	return []episode.Shot{
		{ID: 1, Duration: 9, Subtitles: []string{"first", "second"}},
		{ID: 2, Duration: 9},
		{ID: 3, Duration: 17, Subtitles: []string{"third", "fourth", "fifth"}},
	}
}

func TestComposeRoundTripScenario(t *testing.T) {
	doc := subtitles.Compose(roundTripShots())
	if len(doc.Cues) != 5 {
		t.Fatalf("expected 5 cues, got %d", len(doc.Cues))
	}
	if doc.Duration != 35 {
		t.Fatalf("expected total duration 35, got %v", doc.Duration)
	}
	if doc.Cues[0].Start != 0 || doc.Cues[1].End >= 9 {
		t.Fatalf("first shot cues should cover [0,9): %+v %+v", doc.Cues[0], doc.Cues[1])
	}
	if doc.Cues[2].Start != 18 {
		t.Fatalf("third shot should start after the silent shot at 18, got %v", doc.Cues[2].Start)
	}
	last := doc.Cues[4]
	wantEnd := 18 + 17.0*2/3 + (17.0/3)*0.9
	if math.Abs(last.End-wantEnd) > 1e-9 || last.End > 35 {
		t.Fatalf("unexpected last cue end %v want %v", last.End, wantEnd)
	}
	for i, cue := range doc.Cues {
		if cue.Index != i+1 {
			t.Fatalf("cue %d has index %d", i, cue.Index)
		}
		if i > 0 {
			prev := doc.Cues[i-1]
			if cue.Start < prev.Start || prev.End > cue.Start {
				t.Fatalf("cues %d and %d overlap or are out of order", prev.Index, cue.Index)
			}
		}
	}
}

func TestComposeSkipsBlankLinesButKeepsTheirSlice(t *testing.T) {
	doc := subtitles.Compose([]episode.Shot{{ID: 1, Duration: 6, Subtitles: []string{"a", "  ", "c"}}})
	if len(doc.Cues) != 2 {
		t.Fatalf("expected blank line skipped, got %d cues", len(doc.Cues))
	}
	if doc.Cues[1].Start != 4 || doc.Cues[1].Index != 2 {
		t.Fatalf("expected third slice at 4s with index 2, got %+v", doc.Cues[1])
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{2.7, "00:00:02,700"},
		{8.7, "00:00:08,700"},
		{61.2346, "00:01:01,235"},
		{3599.9996, "01:00:00,000"},
		{3725.5, "01:02:05,500"},
		{-1, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := subtitles.FormatTimestamp(tt.in); got != tt.want {
			t.Fatalf("FormatTimestamp(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEncodeAndParse(t *testing.T) {
	doc := subtitles.Compose(roundTripShots())
	encoded := string(subtitles.Encode(doc))
	if !strings.HasPrefix(encoded, "1\n00:00:00,000 --> 00:00:04,050\nfirst\n\n2\n00:00:04,500 --> 00:00:08,550\nsecond\n\n") {
		t.Fatalf("unexpected encoding:\n%s", encoded)
	}

	parsed, err := subtitles.Parse([]byte(encoded))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(parsed.Cues) != len(doc.Cues) {
		t.Fatalf("expected %d cues, got %d", len(doc.Cues), len(parsed.Cues))
	}
	for i := range doc.Cues {
		if math.Abs(parsed.Cues[i].Start-doc.Cues[i].Start) > 0.001 || parsed.Cues[i].Text != doc.Cues[i].Text {
			t.Fatalf("cue %d mismatch: %+v vs %+v", i, parsed.Cues[i], doc.Cues[i])
		}
	}
}

func TestParseRejectsBadTimestamps(t *testing.T) {
	if _, err := subtitles.Parse([]byte("1\n00:00:xx,000 --> 00:00:01,000\nhi\n")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := subtitles.Parse([]byte("one\n00:00:00,000 --> 00:00:01,000\nhi\n")); err == nil {
		t.Fatal("expected index error")
	}
}

func TestWriteValidateAndCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "episode_001.srt")
	doc := subtitles.Compose(roundTripShots())
	if err := subtitles.Write(path, doc); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if issues := subtitles.ValidateFile(path, 5); len(issues) != 0 {
		t.Fatalf("expected clean file, got %v", issues)
	}
	count, err := subtitles.CountCues(path)
	if err != nil || count != 5 {
		t.Fatalf("CountCues = %d, %v", count, err)
	}
	if issues := subtitles.ValidateFile(path, 4); len(issues) != 1 || !strings.HasPrefix(issues[0], "cue_count_mismatch") {
		t.Fatalf("expected count mismatch, got %v", issues)
	}
}

func TestValidateFileFlagsOverlap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.srt")
	content := "1\n00:00:00,000 --> 00:00:03,000\na\n\n2\n00:00:02,000 --> 00:00:04,000\nb\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	issues := subtitles.ValidateFile(path, 0)
	if len(issues) != 1 || !strings.HasPrefix(issues[0], "overlap") {
		t.Fatalf("expected overlap issue, got %v", issues)
	}

	empty := filepath.Join(t.TempDir(), "empty.srt")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if issues := subtitles.ValidateFile(empty, 0); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("expected empty file issue, got %v", issues)
	}
}
