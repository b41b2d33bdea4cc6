package ffmpeg

import (
	"strconv"
	"strings"
)

// Input is one ffmpeg input with its pre-input options.
type Input struct {
	Path string
	// Format forces the demuxer (-f), e.g. "lavfi" or "concat".
	Format string
	// Loop repeats a still image (-loop 1).
	Loop bool
	// Duration limits the input (-t) when positive.
	Duration float64
	// Options are extra flags placed before -i.
	Options []string
}

// Command is a declarative ffmpeg invocation producing a single output.
type Command struct {
	Inputs        []Input
	FilterComplex string
	AudioFilter   string
	Maps          []string
	OutputOptions []string
	Output        string
}

// Args renders the command line (without the binary) targeting output.
func (c Command) Args(output string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, in := range c.Inputs {
		if in.Loop {
			args = append(args, "-loop", "1")
		}
		if in.Duration > 0 {
			args = append(args, "-t", FormatSeconds(in.Duration))
		}
		if in.Format != "" {
			args = append(args, "-f", in.Format)
		}
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}
	if c.FilterComplex != "" {
		args = append(args, "-filter_complex", c.FilterComplex)
	}
	if c.AudioFilter != "" {
		args = append(args, "-filter:a", c.AudioFilter)
	}
	for _, m := range c.Maps {
		args = append(args, "-map", m)
	}
	args = append(args, c.OutputOptions...)
	return append(args, output)
}

// FormatSeconds renders seconds with millisecond precision and no trailing zeros.
func FormatSeconds(seconds float64) string {
	return strconv.FormatFloat(roundMillis(seconds), 'f', -1, 64)
}

func roundMillis(seconds float64) float64 {
	return float64(int64(seconds*1000+0.5)) / 1000
}

// Graph accumulates filter_complex chains.
type Graph struct {
	chains []string
}

// Chain appends "[in1][in2]filter1,filter2[out]".
func (g *Graph) Chain(inputs []string, filters []string, outputs ...string) *Graph {
	var b strings.Builder
	for _, in := range inputs {
		b.WriteString(label(in))
	}
	b.WriteString(strings.Join(filters, ","))
	for _, out := range outputs {
		b.WriteString(label(out))
	}
	g.chains = append(g.chains, b.String())
	return g
}

// Len reports the number of chains added.
func (g *Graph) Len() int { return len(g.chains) }

// String joins chains with ';'.
func (g *Graph) String() string {
	return strings.Join(g.chains, ";")
}

func label(name string) string {
	if strings.HasPrefix(name, "[") {
		return name
	}
	return "[" + name + "]"
}

// EscapeFilterValue escapes a value (typically a path) for use inside a
// single-quoted filter argument.
func EscapeFilterValue(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return replacer.Replace(value)
}
