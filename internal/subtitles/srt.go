package subtitles

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"reelforge/internal/fileutil"
)

// FormatTimestamp renders seconds as HH:MM:SS,mmm, rounding to the nearest
// millisecond.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	totalSeconds := total / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, ms)
}

// Encode serializes doc as SRT blocks.
func Encode(doc Document) []byte {
	var buf bytes.Buffer
	for _, cue := range doc.Cues {
		buf.WriteString(strconv.Itoa(cue.Index))
		buf.WriteByte('\n')
		buf.WriteString(FormatTimestamp(cue.Start))
		buf.WriteString(" --> ")
		buf.WriteString(FormatTimestamp(cue.End))
		buf.WriteByte('\n')
		buf.WriteString(cue.Text)
		buf.WriteString("\n\n")
	}
	return buf.Bytes()
}

// Write stores doc at path atomically.
func Write(path string, doc Document) error {
	if err := fileutil.WriteFileAtomic(path, Encode(doc), 0o644); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// Parse reads SRT content back into a document. Duration is set to the last
// cue end.
func Parse(data []byte) (Document, error) {
	var doc Document
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	for _, block := range strings.Split(strings.TrimSpace(content), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			return Document{}, fmt.Errorf("srt block %q: missing time range", lines[0])
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return Document{}, fmt.Errorf("srt block %q: invalid index", lines[0])
		}
		start, end, err := parseRange(lines[1])
		if err != nil {
			return Document{}, fmt.Errorf("srt cue %d: %w", index, err)
		}
		doc.Cues = append(doc.Cues, Cue{
			Index: index,
			Start: start,
			End:   end,
			Text:  strings.Join(lines[2:], "\n"),
		})
		if end > doc.Duration {
			doc.Duration = end
		}
	}
	return doc, nil
}

// ReadFile parses the SRT file at path.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read srt: %w", err)
	}
	return Parse(data)
}

// CountCues returns the number of non-empty blocks in the SRT file at path.
func CountCues(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	defer file.Close()

	count := 0
	inBlock := false
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			inBlock = false
			continue
		}
		if !inBlock {
			count++
			inBlock = true
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan srt: %w", err)
	}
	return count, nil
}

// ValidateFile checks an SRT file for format issues. An empty slice means the
// file passed. expectedCues <= 0 skips the count check.
func ValidateFile(path string, expectedCues int) []string {
	var issues []string

	doc, err := ReadFile(path)
	if err != nil {
		return append(issues, fmt.Sprintf("parse_error: %v", err))
	}
	if len(doc.Cues) == 0 {
		return append(issues, "empty_subtitle_file")
	}
	if expectedCues > 0 && len(doc.Cues) != expectedCues {
		issues = append(issues, fmt.Sprintf("cue_count_mismatch: got=%d want=%d", len(doc.Cues), expectedCues))
	}
	for i, cue := range doc.Cues {
		if cue.Index != i+1 {
			issues = append(issues, fmt.Sprintf("index_gap: cue %d has index %d", i+1, cue.Index))
		}
		if cue.End <= cue.Start {
			issues = append(issues, fmt.Sprintf("non_positive_duration: cue %d", cue.Index))
		}
		if i > 0 && cue.Start < doc.Cues[i-1].End {
			issues = append(issues, fmt.Sprintf("overlap: cue %d starts before cue %d ends", cue.Index, doc.Cues[i-1].Index))
		}
	}
	return issues
}

func parseRange(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time range %q", line)
	}
	start, err := parseSRTTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseSRTTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Accept a period as the millisecond separator as well.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}
