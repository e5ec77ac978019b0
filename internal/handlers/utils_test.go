package handlers

import "testing"

func TestExtractCookieToken(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"single cookie", "auth_token=abc123", "abc123"},
		{"among others", "theme=dark; auth_token=abc123; lang=en", "abc123"},
		{"trailing semicolon", "auth_token=abc123;", "abc123"},
		{"absent", "theme=dark; lang=en", ""},
		{"empty header", "", ""},
		{"name is a suffix of another cookie", "xauth_token=evil; auth_token=good", "good"},
	}
	for _, tc := range cases {
		if got := extractCookieToken(tc.header, "auth_token"); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}
