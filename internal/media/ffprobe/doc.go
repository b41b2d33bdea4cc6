// Package ffprobe measures media files with ffprobe.
//
// Inspect decodes the JSON report; Duration is what tempo correction uses to
// measure each synthesized line.
package ffprobe
