package ffmpeg

import (
	"fmt"
	"strings"
)

// SegmentSampleRate is the sample rate of per-line speech segments.
const SegmentSampleRate = 22050

// SegmentOptions encode mono MP3 segments.
var SegmentOptions = []string{
	"-c:a", "libmp3lame",
	"-q:a", "2",
	"-ar", fmt.Sprint(SegmentSampleRate),
	"-ac", "1",
	"-b:a", "64k",
}

// Silence returns a command producing duration seconds of mono silence.
func Silence(duration float64, output string) Command {
	return Command{
		Inputs: []Input{{
			Path:     fmt.Sprintf("anullsrc=channel_layout=mono:sample_rate=%d", SegmentSampleRate),
			Format:   "lavfi",
			Duration: duration,
		}},
		OutputOptions: append([]string(nil), SegmentOptions...),
		Output:        output,
	}
}

// Transcode converts a raw clip into the segment format.
func Transcode(input, output string) Command {
	return Command{
		Inputs:        []Input{{Path: input}},
		OutputOptions: append([]string(nil), SegmentOptions...),
		Output:        output,
	}
}

// Tempo applies a chained atempo filter to input.
func Tempo(input, output string, stages []string) Command {
	return Command{
		Inputs:        []Input{{Path: input}},
		AudioFilter:   strings.Join(stages, ","),
		OutputOptions: append([]string(nil), SegmentOptions...),
		Output:        output,
	}
}

// PadTo extends input with trailing silence until it lasts total seconds.
func PadTo(input, output string, total float64) Command {
	return Command{
		Inputs:        []Input{{Path: input}},
		AudioFilter:   "apad=whole_dur=" + FormatSeconds(total),
		OutputOptions: append([]string(nil), SegmentOptions...),
		Output:        output,
	}
}

// Concat joins the files named in a concat demuxer list without re-encoding.
func Concat(listFile, output string) Command {
	return Command{
		Inputs:        []Input{{Path: listFile, Format: "concat", Options: []string{"-safe", "0"}}},
		OutputOptions: []string{"-c", "copy"},
		Output:        output,
	}
}

// ConcatList renders a concat demuxer list for paths.
func ConcatList(paths []string) []byte {
	var b strings.Builder
	for _, path := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(path, "'", `'\''`))
		b.WriteString("'\n")
	}
	return []byte(b.String())
}
