package suggest

import "testing"

func TestClosest(t *testing.T) {
	ids := []string{"ad", "blog", "email", "product", "seo", "social", "tweet-thread", "youtube"}

	tests := []struct {
		input string
		want  string
	}{
		{"blg", "blog"},
		{"tweet", "tweet-thread"},
		{"youtub", "youtube"},
		{"", ""},
		{"zzzz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Closest(tt.input, ids); got != tt.want {
				t.Errorf("Closest(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestHintSkipsExactMatch(t *testing.T) {
	if got := Hint("blog", []string{"blog"}); got != "" {
		t.Errorf("expected no hint for exact match, got %q", got)
	}
	if got := Hint("blg", []string{"blog"}); got != ` Did you mean "blog"?` {
		t.Errorf("unexpected hint %q", got)
	}
}
