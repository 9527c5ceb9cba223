package lyrics

import (
	"testing"
)

func TestParseLRC(t *testing.T) {
	raw := "[ar:Somebody]\n" +
		"[00:00.00]first line\n" +
		"[00:12.50]second line\n" +
		"\n" +
		"[01:05.250]third line\n" +
		"not a tagged line\n" +
		"[00:30]   \n"

	set := ParseLRC(raw)

	if len(set) != 3 {
		t.Fatalf("expected 3 lines, got %d: %+v", len(set), set)
	}
	if set[0].TimeMs != 0 || set[0].Text != "first line" {
		t.Errorf("line 0 = %+v", set[0])
	}
	if set[1].TimeMs != 12500 || set[1].Text != "second line" {
		t.Errorf("line 1 = %+v", set[1])
	}
	if set[2].TimeMs != 65250 || set[2].Text != "third line" {
		t.Errorf("line 2 = %+v", set[2])
	}
}

func TestParseLRC_OutOfOrderTimestamps(t *testing.T) {
	raw := "[00:20.00]later\n[00:05.00]earlier\n"

	set := ParseLRC(raw)

	if len(set) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(set))
	}
	if set[0].Text != "earlier" || set[1].Text != "later" {
		t.Errorf("lines not sorted by offset: %+v", set)
	}
}

func TestParseLRC_HourTimestamps(t *testing.T) {
	set := ParseLRC("[01:02:03.00]deep cut\n")

	if len(set) != 1 {
		t.Fatalf("expected 1 line, got %d", len(set))
	}
	want := 3_600_000 + 2*60_000 + 3_000
	if set[0].TimeMs != want {
		t.Errorf("TimeMs = %d, want %d", set[0].TimeMs, want)
	}
}

func TestSynthesize_EvenDistribution(t *testing.T) {
	plain := "line 0\nline 1\nline 2\nline 3\nline 4\n" +
		"line 5\nline 6\nline 7\nline 8\nline 9"

	set := Synthesize(plain, 200000)

	if len(set) != 10 {
		t.Fatalf("expected 10 lines, got %d", len(set))
	}
	for i, line := range set {
		if line.TimeMs != i*20000 {
			t.Errorf("line %d at %dms, want %dms", i, line.TimeMs, i*20000)
		}
	}
}

func TestSynthesize_MinSpacingFloor(t *testing.T) {
	plain := "a\nb\nc\nd\ne\nf\ng\nh\ni\nj"

	// 10 lines over 3 seconds would be 300ms apart without the floor.
	set := Synthesize(plain, 3000)

	for i := 1; i < len(set); i++ {
		if gap := set[i].TimeMs - set[i-1].TimeMs; gap < MinLineSpacingMs {
			t.Errorf("gap between lines %d and %d is %dms, below floor", i-1, i, gap)
		}
	}
}

func TestSynthesize_UnknownDuration(t *testing.T) {
	set := Synthesize("one\ntwo\nthree", 0)

	if len(set) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(set))
	}
	if set[0].TimeMs != 0 {
		t.Errorf("first line should start at 0, got %d", set[0].TimeMs)
	}
	if set[1].TimeMs != DefaultDurationMs/3 {
		t.Errorf("line 1 at %dms, want %dms", set[1].TimeMs, DefaultDurationMs/3)
	}
}

func TestSynthesize_BlankLinesDropped(t *testing.T) {
	set := Synthesize("one\n\n  \ntwo\n", 100000)

	if len(set) != 2 {
		t.Fatalf("expected blank lines dropped, got %d lines", len(set))
	}
	if set[0].Text != "one" || set[1].Text != "two" {
		t.Errorf("unexpected lines: %+v", set)
	}
}

func TestSynthesize_EmptyInput(t *testing.T) {
	if set := Synthesize("", 200000); len(set) != 0 {
		t.Errorf("empty input should synthesize nothing, got %+v", set)
	}
	if set := Synthesize("\n \n", 200000); len(set) != 0 {
		t.Errorf("whitespace input should synthesize nothing, got %+v", set)
	}
}
