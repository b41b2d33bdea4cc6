// Package timing partitions a shot's duration evenly across its subtitle
// lines and tracks the running episode clock.
package timing

// DwellFraction is the share of each slice during which a cue is displayed.
// The remainder is a short gap before the next line.
const DwellFraction = 0.9

// Window is one line's share of a shot, relative to the shot start.
type Window struct {
	Start    float64
	End      float64
	SliceEnd float64
}

// Dwell returns how long the cue is displayed.
func (w Window) Dwell() float64 { return w.End - w.Start }

// Slice returns the full share of the shot allotted to the line.
func (w Window) Slice() float64 { return w.SliceEnd - w.Start }

// Partition splits duration into n equal slices. Boundaries are computed from
// the index rather than by accumulation so the final slice ends exactly at
// duration. n == 0 yields no windows.
func Partition(duration float64, n int) []Window {
	if n <= 0 || duration <= 0 {
		return nil
	}
	slice := duration / float64(n)
	windows := make([]Window, n)
	for i := range windows {
		start := duration * float64(i) / float64(n)
		end := duration * float64(i+1) / float64(n)
		if i == n-1 {
			end = duration
		}
		windows[i] = Window{
			Start:    start,
			End:      start + slice*DwellFraction,
			SliceEnd: end,
		}
	}
	return windows
}

// Timeline is a cursor over consecutive shots.
type Timeline struct {
	cursor float64
}

// Offset returns the absolute start of the next shot.
func (t *Timeline) Offset() float64 { return t.cursor }

// Advance moves the cursor past a shot of the given duration and returns
// the shot's absolute start. Shots without lines still advance the cursor.
func (t *Timeline) Advance(duration float64) float64 {
	start := t.cursor
	t.cursor += duration
	return start
}
