package lyrics

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/sethziin/stc/internal/core"
)

const (
	// DefaultDurationMs paces synthesized lyrics when the track duration is
	// unknown.
	DefaultDurationMs = 180000

	// MinLineSpacingMs is the floor between synthesized lines so very short
	// tracks with many lines do not flash text faster than anyone can read.
	MinLineSpacingMs = 800
)

// ParseLRC extracts timestamped lines from an LRC body. Lines without a
// leading [mm:ss.xx] tag (metadata tags included) are skipped; the result is
// ordered by offset.
func ParseLRC(raw string) core.LyricSet {
	var set core.LyricSet

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") {
			continue
		}

		end := strings.IndexByte(line, ']')
		if end < 0 {
			continue
		}

		offset, ok := parseTimestamp(line[1:end])
		if !ok {
			continue
		}

		text := strings.TrimSpace(line[end+1:])
		if text == "" {
			continue
		}

		set = append(set, core.LyricLine{TimeMs: offset, Text: text})
	}

	sort.SliceStable(set, func(i, j int) bool { return set[i].TimeMs < set[j].TimeMs })

	return set
}

// parseTimestamp converts "mm:ss.xx" (optionally "hh:mm:ss.xx") to
// milliseconds.
func parseTimestamp(tag string) (int, bool) {
	parts := strings.Split(tag, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 {
		return 0, false
	}

	total := int(math.Round(seconds * 1000))

	minutes, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil || minutes < 0 {
		return 0, false
	}
	total += minutes * 60_000

	if len(parts) == 3 {
		hours, err := strconv.Atoi(parts[0])
		if err != nil || hours < 0 {
			return 0, false
		}
		total += hours * 3_600_000
	}

	return total, true
}

// Synthesize spreads a plain-text lyric block evenly across the track: the
// first line lands at offset zero and subsequent lines follow at
// duration/lineCount intervals, never closer than MinLineSpacingMs.
func Synthesize(plain string, durationMs int) core.LyricSet {
	if durationMs <= 0 {
		durationMs = DefaultDurationMs
	}

	var texts []string
	for _, line := range strings.Split(plain, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		texts = append(texts, line)
	}
	if len(texts) == 0 {
		return nil
	}

	spacing := durationMs / len(texts)
	if spacing < MinLineSpacingMs {
		spacing = MinLineSpacingMs
	}

	set := make(core.LyricSet, len(texts))
	for i, text := range texts {
		set[i] = core.LyricLine{TimeMs: i * spacing, Text: text}
	}

	return set
}
