package maintenance

import (
	"testing"
	"time"

	"github.com/simplewatch/simplewatch/internal/storage"
)

func TestNextOccurrenceDaily(t *testing.T) {
	start := time.Date(2025, 6, 4, 2, 30, 0, 0, time.UTC) // Wednesday
	next, ok := NextOccurrence(start, storage.RecurrenceDaily, nil)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	want := time.Date(2025, 6, 5, 2, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestNextOccurrenceWeekly(t *testing.T) {
	// Monday/Wednesday/Friday; prior occurrence on Wednesday -> Friday.
	start := time.Date(2025, 6, 4, 2, 30, 0, 0, time.UTC) // Wednesday
	cfg := &storage.RecurrenceConfig{Weekdays: []int{1, 3, 5}}

	next, ok := NextOccurrence(start, storage.RecurrenceWeekly, cfg)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	want := time.Date(2025, 6, 6, 2, 30, 0, 0, time.UTC) // Friday, 2 days later
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
	if next.Weekday() != time.Friday {
		t.Fatalf("expected Friday, got %s", next.Weekday())
	}
}

func TestNextOccurrenceWeeklyWrapsWeek(t *testing.T) {
	// Only Mondays; prior occurrence on Monday -> next Monday, 7 days later.
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) // Monday
	cfg := &storage.RecurrenceConfig{Weekdays: []int{1}}

	next, ok := NextOccurrence(start, storage.RecurrenceWeekly, cfg)
	if !ok {
		t.Fatal("expected an occurrence")
	}
	if !next.Equal(start.AddDate(0, 0, 7)) {
		t.Fatalf("next = %v, want one week later", next)
	}
}

func TestNextOccurrenceMonthly(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		day   int
		want  time.Time
	}{
		{
			name:  "fixed day",
			start: time.Date(2025, 6, 15, 2, 0, 0, 0, time.UTC),
			day:   15,
			want:  time.Date(2025, 7, 15, 2, 0, 0, 0, time.UTC),
		},
		{
			name:  "clamped to short month",
			start: time.Date(2025, 1, 31, 2, 0, 0, 0, time.UTC),
			day:   31,
			want:  time.Date(2025, 2, 28, 2, 0, 0, 0, time.UTC),
		},
		{
			name:  "last day of month",
			start: time.Date(2025, 4, 30, 2, 0, 0, 0, time.UTC),
			day:   -1,
			want:  time.Date(2025, 5, 31, 2, 0, 0, 0, time.UTC),
		},
		{
			name:  "leap year february",
			start: time.Date(2024, 1, 31, 2, 0, 0, 0, time.UTC),
			day:   31,
			want:  time.Date(2024, 2, 29, 2, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &storage.RecurrenceConfig{Day: tt.day}
			next, ok := NextOccurrence(tt.start, storage.RecurrenceMonthly, cfg)
			if !ok {
				t.Fatal("expected an occurrence")
			}
			if !next.Equal(tt.want) {
				t.Fatalf("next = %v, want %v", next, tt.want)
			}
		})
	}
}

func TestNextOccurrenceMonthlyWeekday(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		week    int
		weekday int
		want    time.Time
		wantOK  bool
	}{
		{
			name:    "second tuesday",
			start:   time.Date(2025, 6, 10, 3, 0, 0, 0, time.UTC),
			week:    2,
			weekday: 2, // Tuesday
			want:    time.Date(2025, 7, 8, 3, 0, 0, 0, time.UTC),
			wantOK:  true,
		},
		{
			name:    "last friday",
			start:   time.Date(2025, 6, 27, 3, 0, 0, 0, time.UTC),
			week:    -1,
			weekday: 5, // Friday
			want:    time.Date(2025, 7, 25, 3, 0, 0, 0, time.UTC),
			wantOK:  true,
		},
		{
			// February 2025 has only four Saturdays; a fifth does not exist.
			name:    "missing fifth occurrence is skipped",
			start:   time.Date(2025, 1, 25, 3, 0, 0, 0, time.UTC),
			week:    5,
			weekday: 6, // Saturday
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &storage.RecurrenceConfig{Week: tt.week, Weekday: tt.weekday}
			next, ok := NextOccurrence(tt.start, storage.RecurrenceMonthlyWeekday, cfg)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !next.Equal(tt.want) {
				t.Fatalf("next = %v, want %v", next, tt.want)
			}
		})
	}
}

func TestNextOccurrenceNone(t *testing.T) {
	start := time.Date(2025, 6, 4, 2, 30, 0, 0, time.UTC)
	if _, ok := NextOccurrence(start, storage.RecurrenceNone, nil); ok {
		t.Fatal("non-recurring windows have no next occurrence")
	}
}
