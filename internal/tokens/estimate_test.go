package tokens

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty string", text: "", want: 0},
		// 1 word, 7 runes: ceil((1.3 + 1.75) / 2) = ceil(1.525) = 2
		{name: "single word", text: "bonjour", want: 2},
		// 2 words, 8 runes: ceil((2.6 + 2.0) / 2) = ceil(2.3) = 3
		{name: "two words", text: "deux mot", want: 3},
		// 4 words, 19 runes: ceil((5.2 + 4.75) / 2) = ceil(4.975) = 5
		{name: "short sentence", text: "le refuge est beau.", want: 5},
		{name: "whitespace only", text: "   ", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateMonotonicInLength(t *testing.T) {
	short := "Le glacier avance."
	long := short + " Il recule aussi, selon les saisons et les années."
	if Estimate(long) <= Estimate(short) {
		t.Errorf("Estimate(%q) = %d should exceed Estimate(%q) = %d",
			long, Estimate(long), short, Estimate(short))
	}
}
