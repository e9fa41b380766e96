package prerender

import "testing"

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		value   string
		want    bool
	}{
		{"exact", "/about", "/about", true},
		{"exact miss", "/about", "/contact", false},
		{"star crosses slashes", "*.example.com/*", "sub.example.com/path", true},
		{"star crosses nested path", "*.example.com/*", "sub.example.com/path/deep", true},
		{"star crosses slashes miss", "*.example.com/*", "example.org/path", false},
		{"prefix star", "/users/*", "/users/42/profile", true},
		{"star matches empty", "/users/*", "/users/", true},
		{"question mark", "/item?", "/item1", true},
		{"question mark miss", "/item?", "/item12", false},
		{"char class", "/v[12]/api", "/v1/api", true},
		{"char class miss", "/v[12]/api", "/v3/api", false},
		{"empty pattern", "", "", true},
		{"empty pattern miss", "", "/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.pattern, tt.value); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.pattern, tt.value, got, tt.want)
			}
		})
	}
}

func TestMatchesMalformedPattern(t *testing.T) {
	// An unclosed character class cannot compile; the pattern falls back to
	// literal comparison instead of matching nothing or panicking.
	pattern := "/path/[unclosed"

	if !Matches(pattern, "/path/[unclosed") {
		t.Error("malformed pattern should match itself literally")
	}
	if Matches(pattern, "/path/x") {
		t.Error("malformed pattern should not glob-match")
	}
}

func TestIsListed(t *testing.T) {
	patterns := []string{"/admin/*", "/internal"}

	tests := []struct {
		name    string
		needles []string
		want    bool
	}{
		{"single hit", []string{"/admin/users"}, true},
		{"exact hit", []string{"/internal"}, true},
		{"miss", []string{"/public"}, false},
		{"second needle hits", []string{"/public", "/admin/x"}, true},
		{"no needles", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsListed(tt.needles, patterns); got != tt.want {
				t.Errorf("IsListed(%v) = %v, want %v", tt.needles, got, tt.want)
			}
		})
	}
}

func TestIsListedEmptyPatterns(t *testing.T) {
	if IsListed([]string{"/anything"}, nil) {
		t.Error("empty pattern list should match nothing")
	}
}
