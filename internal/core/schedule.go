package core

// ActiveLine returns the index of the lyric line active at the given offset:
// the greatest index whose TimeMs is at or before the offset. Ties on TimeMs
// resolve to the latest such line. Returns -1 when the offset precedes the
// first line or the set is empty.
func ActiveLine(set LyricSet, offsetMs int) int {
	if len(set) == 0 || offsetMs < set[0].TimeMs {
		return -1
	}

	lo, hi := 0, len(set)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if set[mid].TimeMs <= offsetMs {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo
}
