package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/ffmpeg"
	"reelforge/internal/services"
)

type recordingRunner struct {
	cmds []ffmpeg.Command
	err  error
}

func (r *recordingRunner) Run(_ context.Context, cmd ffmpeg.Command) error {
	r.cmds = append(r.cmds, cmd)
	return r.err
}

func videoConfig() config.Video {
	return config.Default().Video
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func segments(t *testing.T, dir string, durations ...float64) []Segment {
	t.Helper()
	out := make([]Segment, len(durations))
	for i, d := range durations {
		out[i] = Segment{ShotID: i + 1, Image: touch(t, dir, filepath.Base(t.Name())+string(rune('a'+i))+".png"), Duration: d}
	}
	return out
}

func TestBuildCommandWithoutAudio(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(&recordingRunner{}, videoConfig())
	plan, err := a.BuildCommand(Request{
		Segments:  segments(t, dir, 3, 4.5),
		Subtitles: "/tmp/ep:1.srt",
		Output:    filepath.Join(dir, "out.mp4"),
	})
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	cmd := plan.Command
	wantFilter := "[0:v]scale=720:1280:force_original_aspect_ratio=decrease,pad=720:1280:(ow-iw)/2:(oh-ih)/2,setsar=1[v0];" +
		"[1:v]scale=720:1280:force_original_aspect_ratio=decrease,pad=720:1280:(ow-iw)/2:(oh-ih)/2,setsar=1[v1];" +
		"[v0][v1]concat=n=2:v=1:a=0[outv];" +
		`[outv]subtitles='/tmp/ep\:1.srt':force_style='FontName=PingFang SC,FontSize=24,PrimaryColour=&Hffffff,OutlineColour=&H000000,Outline=2,Shadow=1'[vsub]`
	if cmd.FilterComplex != wantFilter {
		t.Fatalf("filter mismatch:\n got %s\nwant %s", cmd.FilterComplex, wantFilter)
	}
	if !slices.Equal(cmd.Maps, []string{"[vsub]"}) {
		t.Fatalf("maps = %v", cmd.Maps)
	}
	args := cmd.Args("out.mp4")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-loop 1 -t 3 -i") || !strings.Contains(joined, "-loop 1 -t 4.5 -i") {
		t.Fatalf("image inputs missing from %v", args)
	}
	if !strings.Contains(joined, "-r 30 -pix_fmt yuv420p") {
		t.Fatalf("output options missing from %v", args)
	}
	if strings.Contains(joined, "-c:a") {
		t.Fatalf("audio options present without audio: %v", args)
	}
}

func TestBuildCommandDropsExtraTracksAndSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(&recordingRunner{}, videoConfig())
	tracks := []string{touch(t, dir, "a1.mp3"), filepath.Join(dir, "gone.mp3"), touch(t, dir, "a3.mp3"), touch(t, dir, "a4.mp3")}
	plan, err := a.BuildCommand(Request{
		Segments:  segments(t, dir, 3, 3, 3),
		Subtitles: filepath.Join(dir, "ep.srt"),
		Audio:     tracks,
		Output:    filepath.Join(dir, "out.mp4"),
	})
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if plan.Dropped != 1 || len(plan.Missing) != 1 || len(plan.Audio) != 2 {
		t.Fatalf("unexpected plan: dropped=%d missing=%v audio=%v", plan.Dropped, plan.Missing, plan.Audio)
	}
	if !strings.HasSuffix(plan.Command.FilterComplex, "[3:a][4:a]concat=n=2:v=0:a=1[outa]") {
		t.Fatalf("audio concat missing: %s", plan.Command.FilterComplex)
	}
	if !slices.Equal(plan.Command.Maps, []string{"[vsub]", "[outa]"}) {
		t.Fatalf("maps = %v", plan.Command.Maps)
	}
	joined := strings.Join(plan.Command.OutputOptions, " ")
	if !strings.Contains(joined, "-c:a aac -b:a 128k -ar 44100") {
		t.Fatalf("audio options missing: %s", joined)
	}
}

func TestTwoTracksForThreeShots(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	a := NewAssembler(runner, videoConfig())
	plan, err := a.Assemble(context.Background(), Request{
		Segments:  segments(t, dir, 2, 2, 2),
		Subtitles: filepath.Join(dir, "ep.srt"),
		Audio:     []string{touch(t, dir, "s1.mp3"), touch(t, dir, "s2.mp3")},
		Output:    filepath.Join(dir, "out.mp4"),
	})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(runner.cmds) != 1 || len(plan.Audio) != 2 {
		t.Fatalf("expected one run with two tracks, got %d runs, %v", len(runner.cmds), plan.Audio)
	}
	if !strings.Contains(plan.Command.FilterComplex, "[3:a][4:a]concat=n=2:v=0:a=1[outa]") {
		t.Fatalf("filter = %s", plan.Command.FilterComplex)
	}
}

func TestPadSilentShots(t *testing.T) {
	dir := t.TempDir()
	cfg := videoConfig()
	cfg.PadSilentShots = true
	a := NewAssembler(&recordingRunner{}, cfg)
	plan, err := a.BuildCommand(Request{
		Segments:  segments(t, dir, 2, 5, 3),
		Subtitles: filepath.Join(dir, "ep.srt"),
		Audio:     []string{touch(t, dir, "s1.mp3"), "", touch(t, dir, "s3.mp3")},
		Output:    filepath.Join(dir, "out.mp4"),
	})
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if plan.Padded != 1 || len(plan.Audio) != 2 {
		t.Fatalf("padded=%d audio=%v", plan.Padded, plan.Audio)
	}
	silence := plan.Command.Inputs[4]
	if silence.Format != "lavfi" || silence.Duration != 5 || !strings.HasPrefix(silence.Path, "anullsrc=") {
		t.Fatalf("unexpected silence input %+v", silence)
	}
	if !strings.Contains(plan.Command.FilterComplex, "[3:a][4:a][5:a]concat=n=3:v=0:a=1[outa]") {
		t.Fatalf("filter = %s", plan.Command.FilterComplex)
	}
}

func TestBuildCommandRejectsBadRequests(t *testing.T) {
	dir := t.TempDir()
	a := NewAssembler(&recordingRunner{}, videoConfig())
	tests := []Request{
		{Output: "out.mp4"},
		{Segments: []Segment{{Image: "a.png", Duration: 0}}, Output: "out.mp4"},
		{Segments: []Segment{{Image: "", Duration: 1}}, Output: "out.mp4"},
		{Segments: segments(t, dir, 1)},
	}
	for i, req := range tests {
		if _, err := a.BuildCommand(req); !errors.Is(err, services.ErrAssembly) {
			t.Fatalf("case %d: expected ErrAssembly, got %v", i, err)
		}
	}
}

func TestAssembleWrapsRunnerFailure(t *testing.T) {
	dir := t.TempDir()
	cause := errors.New("ffmpeg exited with 1")
	a := NewAssembler(&recordingRunner{err: cause}, videoConfig())
	_, err := a.Assemble(context.Background(), Request{Segments: segments(t, dir, 1), Output: filepath.Join(dir, "out.mp4")})
	if !errors.Is(err, services.ErrAssembly) || !errors.Is(err, cause) {
		t.Fatalf("expected ErrAssembly wrapping cause, got %v", err)
	}
}
