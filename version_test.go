package main

import "testing"

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		version string
		commit  string
		want    string
	}{
		{"1.4.0", "abcdef1234", "1.4.0"},
		{"dev", "abcdef1234", "dev-abcdef1"},
		{"dev", "abc", "dev-abc"},
		{"dev", "unknown", "dev"},
		{"", "", "dev"},
		{" 1.4.0 ", "x", "1.4.0"},
	}
	for _, tt := range tests {
		if got := formatVersion(tt.version, tt.commit); got != tt.want {
			t.Errorf("formatVersion(%q, %q) = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
