package schedule

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in    string
		kind  Kind
		every time.Duration
		src   string
	}{
		{"@hourly", KindCron, 0, "cron"},
		{"*/15 * * * *", KindCron, 0, "cron"},
		{"cron:0 9 * * 1-5", KindCron, 0, "cron"},
		{"55m", KindInterval, 55 * time.Minute, "duration"},
		{"01:30", KindInterval, 90 * time.Minute, "hhmm"},
		{"every: 2h", KindInterval, 2 * time.Hour, "duration"},
		{"interval:00:45", KindInterval, 45 * time.Minute, "hhmm"},
	}
	for _, c := range cases {
		sp, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if sp.Kind != c.kind || sp.Every != c.every || sp.Source != c.src {
			t.Fatalf("Parse(%q) = %+v", c.in, sp)
		}
		if _, err := sp.Schedule(); err != nil {
			t.Fatalf("Schedule(%q): %v", c.in, err)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, in := range []string{"", "cron:", "soon", "0m", "00:00", "01:75", "* * *", "every:"} {
		if _, err := Parse(in); err == nil {
			t.Fatalf("Parse(%q) should fail", in)
		}
	}
}

func TestIntervalSchedule(t *testing.T) {
	sp, err := Parse("90m")
	if err != nil {
		t.Fatal(err)
	}
	s, err := sp.Schedule()
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	if next := s.Next(now); !next.Equal(now.Add(90 * time.Minute)) {
		t.Fatalf("next = %v", next)
	}
}

func TestLocation(t *testing.T) {
	if loc, err := Location(""); err != nil || loc != time.Local {
		t.Fatalf("empty timezone: %v %v", loc, err)
	}
	if _, err := Location("UTC"); err != nil {
		t.Fatalf("UTC: %v", err)
	}
	if _, err := Location("Mars/Olympus"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}
