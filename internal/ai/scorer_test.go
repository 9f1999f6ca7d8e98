package ai

import "testing"

func TestShouldSend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		score     int
		threshold int
		expect    bool
	}{
		{"unavailable always passes", Unavailable, 70, true},
		{"zero threshold passes everything scored", 0, 0, true},
		{"below threshold suppressed", 69, 70, false},
		{"at threshold passes", 70, 70, true},
		{"above threshold passes", 100, 70, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ShouldSend(tt.score, tt.threshold); got != tt.expect {
				t.Fatalf("ShouldSend(%d, %d) = %v, expected %v", tt.score, tt.threshold, got, tt.expect)
			}
		})
	}
}
