package sanitize

import (
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Zero-width space",
			input:    "Ball\u200BSprite",
			expected: "BallSprite",
		},
		{
			name:     "BOM",
			input:    "\uFEFFScene 2",
			expected: "Scene 2",
		},
		{
			name:     "Line breaks",
			input:    "my\r\nsprite",
			expected: "my sprite",
		},
		{
			name:     "Multiple spaces and tabs",
			input:    "big \t  ball",
			expected: "big ball",
		},
		{
			name:     "Trim both",
			input:    "  Background  ",
			expected: "Background",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "Only whitespace",
			input:    "   \t\t   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeName(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeName() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cat.png", "cat"},
		{"cat#2.png", "cat"},
		{"catroid_tmp_image.png", "catroid_tmp_image"},
		{"archive.tar.gz", "archive.tar"},
		{"noext", "noext"},
		{".hidden", ".hidden"},
		{"#1.png", "#1"},
		{" \u200Bdog.jpg ", "dog"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := BaseName(tt.input); got != tt.expected {
				t.Errorf("BaseName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"cat.png", "cat.png"},
		{"../../etc/passwd", ".._.._etc_passwd"},
		{`C:\Users\x.png`, "C__Users_x.png"},
		{"what?.png", "what_.png"},
		{"..", "_"},
		{"  ball.png  ", "ball.png"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FileName(tt.input); got != tt.expected {
				t.Errorf("FileName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSanitizeField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Invisible chars", "test\u200Bfield", "testfield"},
		{"Whitespace kept inside", "a  b", "a  b"},
		{"Trimmed", "  x  ", "x"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeField(tt.input); got != tt.expected {
				t.Errorf("SanitizeField() = %q, want %q", got, tt.expected)
			}
		})
	}
}
