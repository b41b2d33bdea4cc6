package tts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"reelforge/internal/config"
	"reelforge/internal/services"
)

type recorder struct {
	name string
	args []string
	text string
	fail error
}

// runner records the invocation and writes a fake clip to the path following
// outputFlag.
func (r *recorder) runner(outputFlag string) func(context.Context, string, ...string) error {
	return func(_ context.Context, name string, args ...string) error {
		r.name = name
		r.args = append([]string(nil), args...)
		if r.fail != nil {
			return r.fail
		}
		for i, arg := range args {
			if arg == "-f" && i+1 < len(args) {
				data, _ := os.ReadFile(args[i+1])
				r.text = string(data)
			}
		}
		idx := slices.Index(args, outputFlag)
		if idx < 0 || idx+1 >= len(args) {
			return errors.New("no output flag")
		}
		return os.WriteFile(args[idx+1], []byte("RIFF"), 0o644)
	}
}

var profile = config.VoiceProfile{Rate: 150, Volume: 0.9, Voice: "Ting-Ting"}

func TestAutoSelectsByPlatform(t *testing.T) {
	darwin, err := New(config.Voice{Engine: "auto"}, withGOOS("darwin"))
	if err != nil {
		t.Fatal(err)
	}
	if darwin.Name() != EngineSay || darwin.Extension() != ".aiff" {
		t.Fatalf("expected say engine on darwin, got %s", darwin.Name())
	}
	linux, err := New(config.Voice{Engine: "auto"}, withGOOS("linux"))
	if err != nil {
		t.Fatal(err)
	}
	if linux.Name() != EngineEspeak || linux.Binary() != "espeak-ng" {
		t.Fatalf("expected espeak-ng engine on linux, got %s (%s)", linux.Name(), linux.Binary())
	}
}

func TestSayArguments(t *testing.T) {
	rec := &recorder{}
	engine, err := New(config.Voice{Engine: "say"}, WithCommandRunner(rec.runner("-o")))
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "line.aiff")
	if err := engine.Synthesize(context.Background(), Request{Text: "-不要走", Profile: profile}, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if rec.name != "say" {
		t.Fatalf("unexpected binary %q", rec.name)
	}
	want := []string{"-v", "Ting-Ting", "-r", "200", "-o", out}
	if !slices.Equal(rec.args[:6], want) {
		t.Fatalf("args = %v, want prefix %v", rec.args, want)
	}
	if rec.text != "-不要走" {
		t.Fatalf("text file content = %q", rec.text)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(out), "line.txt")); !os.IsNotExist(err) {
		t.Fatal("text file was not removed")
	}
}

func TestEspeakArguments(t *testing.T) {
	rec := &recorder{}
	engine, err := New(config.Voice{Engine: "espeak"}, WithCommandRunner(rec.runner("-w")), WithBinary("/opt/espeak"))
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "line.wav")
	if err := engine.Synthesize(context.Background(), Request{Text: "hello", Profile: profile}, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{"-v", "Ting-Ting", "-s", "150", "-a", "180", "-w", out}
	if rec.name != "/opt/espeak" || !slices.Equal(rec.args[:8], want) {
		t.Fatalf("invocation = %s %v", rec.name, rec.args)
	}
}

func TestCommandTemplateKeepsTextAsOneArgument(t *testing.T) {
	rec := &recorder{}
	engine, err := New(config.Voice{
		Engine:  "command",
		Command: "edge-tts --voice {voice} --rate {rate} --volume {volume} --text {text} --write-media {output}",
	}, WithCommandRunner(rec.runner("--write-media")))
	if err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "line.wav")
	if err := engine.Synthesize(context.Background(), Request{Text: "two words", Profile: profile}, out); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	want := []string{"--voice", "Ting-Ting", "--rate", "150", "--volume", "0.9", "--text", "two words", "--write-media", out}
	if rec.name != "edge-tts" || !slices.Equal(rec.args, want) {
		t.Fatalf("invocation = %s %v", rec.name, rec.args)
	}
}

func TestSynthesisFailures(t *testing.T) {
	tests := []struct {
		name string
		run  func(context.Context, string, ...string) error
	}{
		{"command error", func(context.Context, string, ...string) error { return errors.New("boom") }},
		{"no output", func(context.Context, string, ...string) error { return nil }},
		{"empty output", func(_ context.Context, _ string, args ...string) error {
			return os.WriteFile(args[slices.Index(args, "-w")+1], nil, 0o644)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := New(config.Voice{Engine: "espeak"}, WithCommandRunner(tt.run))
			if err != nil {
				t.Fatal(err)
			}
			err = engine.Synthesize(context.Background(), Request{Text: "x", Profile: profile}, filepath.Join(t.TempDir(), "x.wav"))
			if !errors.Is(err, services.ErrSynthesis) {
				t.Fatalf("expected ErrSynthesis, got %v", err)
			}
		})
	}
}

func TestNewRejectsBadConfiguration(t *testing.T) {
	for _, voice := range []config.Voice{
		{Engine: "festival"},
		{Engine: "command"},
		{Engine: "command", Command: "tts {text}"},
	} {
		if _, err := New(voice); !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("New(%+v) = %v, want ErrConfiguration", voice, err)
		}
	}
}

func TestScaling(t *testing.T) {
	if got := scaleRate(150); got != 200 {
		t.Fatalf("scaleRate(150) = %d", got)
	}
	if got := scaleRate(0); got != 200 {
		t.Fatalf("scaleRate(0) = %d", got)
	}
	if got := espeakAmplitude(1.5); got != 200 {
		t.Fatalf("espeakAmplitude(1.5) = %d", got)
	}
	if got := espeakAmplitude(0.5); got != 100 {
		t.Fatalf("espeakAmplitude(0.5) = %d", got)
	}
}
