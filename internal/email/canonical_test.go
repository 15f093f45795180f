package email

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCanonicalization(t *testing.T) {
	tests := []struct {
		name     string
		c        string
		hdrMode  string
		bodyMode string
	}{
		{"empty_defaults_to_simple", "", "simple", "simple"},
		{"relaxed_alone_means_relaxed_simple", "relaxed", "relaxed", "simple"},
		{"relaxed_relaxed", "relaxed/relaxed", "relaxed", "relaxed"},
		{"simple_relaxed", "simple/relaxed", "simple", "relaxed"},
		{"case_insensitive", "Relaxed/Simple", "relaxed", "simple"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, b := splitCanonicalization(tt.c)
			require.Equal(t, tt.hdrMode, h)
			require.Equal(t, tt.bodyMode, b)
		})
	}
}

func TestRelaxedValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims_surrounding_space", "  hello  ", "hello"},
		{"collapses_runs", "a  \t b", "a b"},
		{"unfolds_continuations", "line one\r\n\tline two", "line one line two"},
		{"tab_becomes_space", "a\tb", "a b"},
		{"already_canonical", "v=1; a=rsa-sha256", "v=1; a=rsa-sha256"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, relaxedValue(tt.in))
		})
	}
}

func TestCanonicalHeaderLine(t *testing.T) {
	t.Run("relaxed_lowercases_name_and_normalizes_value", func(t *testing.T) {
		got := canonicalHeaderLine("Subject", "  Hello   World ", "Subject:  Hello   World ", canonRelaxed)
		require.Equal(t, "subject: Hello World", got)
	})

	t.Run("simple_keeps_raw_bytes", func(t *testing.T) {
		raw := "Subject:  Hello   World "
		got := canonicalHeaderLine("Subject", "  Hello   World ", raw, canonSimple)
		require.Equal(t, raw, got)
	})
}

func TestCanonicalBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		mode string
		want string
	}{
		{"simple_empty_body", "", canonSimple, "\r\n"},
		{"simple_strips_trailing_empty_lines", "hello\r\n\r\n\r\n", canonSimple, "hello\r\n"},
		{"simple_adds_final_crlf", "hello", canonSimple, "hello\r\n"},
		{"simple_keeps_inner_whitespace", "a  b\r\n", canonSimple, "a  b\r\n"},
		{"relaxed_empty_body", "", canonRelaxed, ""},
		{"relaxed_strips_trailing_empty_lines", "hello\r\n\r\n \r\n", canonRelaxed, "hello\r\n"},
		{"relaxed_trims_line_ends", "hello  \r\n", canonRelaxed, "hello\r\n"},
		{"relaxed_collapses_runs", "a \t b\r\n", canonRelaxed, "a b\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, string(canonicalBody([]byte(tt.body), tt.mode)))
		})
	}
}

func TestBodyHashLengthLimit(t *testing.T) {
	body := []byte("hello world\r\n")

	full := bodyHash(sha256.New(), body, canonRelaxed, -1)
	wantFull := sha256.Sum256([]byte("hello world\r\n"))
	require.Equal(t, wantFull[:], full)

	limited := bodyHash(sha256.New(), body, canonRelaxed, 5)
	wantLimited := sha256.Sum256([]byte("hello"))
	require.Equal(t, wantLimited[:], limited)
}
