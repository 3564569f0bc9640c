package status

import "testing"

func TestAggregate(t *testing.T) {
	tests := []struct {
		name                        string
		operational, degraded, down int
		want                        Status
	}{
		{"all operational", 3, 0, 0, Operational},
		{"all down", 0, 0, 3, Down},
		{"mixed operational and down", 2, 0, 1, Degraded},
		{"any degraded", 2, 1, 0, Degraded},
		{"single degraded", 0, 1, 0, Degraded},
		{"no known statuses", 0, 0, 0, Unknown},
		{"single operational", 1, 0, 0, Operational},
		{"single down", 0, 0, 1, Down},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate(tt.operational, tt.degraded, tt.down)
			if got != tt.want {
				t.Fatalf("Aggregate(%d, %d, %d) = %s, want %s", tt.operational, tt.degraded, tt.down, got, tt.want)
			}
		})
	}
}

func TestAggregateMap(t *testing.T) {
	t.Run("unknown entries are excluded", func(t *testing.T) {
		got := AggregateMap(map[int64]Status{
			1: Operational,
			2: Unknown,
			3: Operational,
		})
		if got != Operational {
			t.Fatalf("expected operational, got %s", got)
		}
	})

	t.Run("all unknown is unknown", func(t *testing.T) {
		got := AggregateMap(map[int64]Status{1: Unknown, 2: Unknown})
		if got != Unknown {
			t.Fatalf("expected unknown, got %s", got)
		}
	})

	t.Run("empty map is unknown", func(t *testing.T) {
		if got := AggregateMap(nil); got != Unknown {
			t.Fatalf("expected unknown, got %s", got)
		}
	})

	t.Run("mixed map is degraded", func(t *testing.T) {
		got := AggregateMap(map[int64]Status{
			1: Operational,
			2: Down,
			3: Unknown,
		})
		if got != Degraded {
			t.Fatalf("expected degraded, got %s", got)
		}
	})
}

func TestValid(t *testing.T) {
	for _, s := range []Status{Operational, Degraded, Down, Unknown} {
		if !Valid(s) {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Valid("maintenance") {
		t.Fatal("expected unrecognized status to be invalid")
	}
}
