package rag

import "testing"

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Docs.Example.COM/Guide", "https://docs.example.com/Guide"},
		{"strips default http port", "http://example.com:80/a", "http://example.com/a"},
		{"strips default https port", "https://example.com:443/a", "https://example.com/a"},
		{"keeps non-default port", "http://example.com:8080/a", "http://example.com:8080/a"},
		{"drops fragment", "https://example.com/page#section-2", "https://example.com/page"},
		{"sorts query params", "https://example.com/s?z=1&a=2", "https://example.com/s?a=2&z=1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeURL(tc.in)
			if err != nil {
				t.Fatalf("NormalizeURL(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeURLRejectsNonHTTP(t *testing.T) {
	for _, in := range []string{"ftp://example.com/x", "mailto:joe@example.com", "javascript:void(0)", "/relative/path"} {
		if _, err := NormalizeURL(in); err == nil {
			t.Fatalf("NormalizeURL(%q): expected error", in)
		}
	}
}

func TestDomain(t *testing.T) {
	got, err := Domain("https://Some.ABCD.com:8443/path?x=1")
	if err != nil {
		t.Fatal(err)
	}
	if got != "some.abcd.com" {
		t.Fatalf("Domain = %q, want some.abcd.com", got)
	}
}

func TestSameHost(t *testing.T) {
	if !SameHost("https://example.com/about", "example.com") {
		t.Fatal("expected same host match")
	}
	if SameHost("https://other.example.com/about", "example.com") {
		t.Fatal("subdomain should not match")
	}
	if SameHost("://bad", "example.com") {
		t.Fatal("invalid url should not match")
	}
}
