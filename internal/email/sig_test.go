package email

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSignature(t *testing.T) {
	value := " v=1; a=rsa-sha256; c=relaxed/relaxed; d=Example.COM; s=Sel1;\r\n" +
		"\th=to:subject : from; bh=aGFzaA==; l=42; b=c2ln c2ln"

	sig, err := parseSignature(value)
	require.NoError(t, err)
	require.Equal(t, "rsa", sig.Algorithm)
	require.Equal(t, "sha256", sig.HashAlgo)
	require.Equal(t, "relaxed/relaxed", sig.Canonicalization)
	require.Equal(t, "example.com", sig.Domain)
	require.Equal(t, "sel1", sig.Selector)
	require.Equal(t, []string{"to", "subject", "from"}, sig.SignedHeaders)
	require.Equal(t, []byte("hash"), sig.BodyHash)
	require.Equal(t, []byte("sigsig"), sig.Signature)
	require.Equal(t, int64(42), sig.Length)
}

func TestParseSignatureErrors(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"missing_b_tag", "v=1; a=rsa-sha256; bh=aGFzaA==; d=example.com; s=sel"},
		{"missing_d_tag", "v=1; a=rsa-sha256; bh=aGFzaA==; b=c2ln; s=sel"},
		{"bad_version", "v=2; a=rsa-sha256; bh=aGFzaA==; b=c2ln; d=example.com; s=sel"},
		{"bad_algorithm", "v=1; a=rsasha256; bh=aGFzaA==; b=c2ln; d=example.com; s=sel"},
		{"duplicate_tag", "v=1; a=rsa-sha256; a=rsa-sha256; bh=aGFzaA==; b=c2ln; d=example.com; s=sel"},
		{"bad_base64", "v=1; a=rsa-sha256; bh=!!; b=c2ln; d=example.com; s=sel"},
		{"bad_length", "v=1; a=rsa-sha256; bh=aGFzaA==; b=c2ln; d=example.com; s=sel; l=10x"},
		{"tag_without_value", "v=1; nonsense; a=rsa-sha256; bh=aGFzaA==; b=c2ln; d=example.com; s=sel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSignature(tt.value)
			require.ErrorIs(t, err, ErrMalformedEmail)
		})
	}
}

func TestParseSignatureDefaultLength(t *testing.T) {
	sig, err := parseSignature("v=1; a=rsa-sha256; bh=aGFzaA==; b=c2ln; d=example.com; s=sel")
	require.NoError(t, err)
	require.Equal(t, int64(-1), sig.Length)
}

func TestEmptyBValue(t *testing.T) {
	t.Run("removes_signature_bytes", func(t *testing.T) {
		got := emptyBValue("v=1; bh=aGFzaA==; b=c2lnbmF0dXJl; d=example.com")
		require.Equal(t, "v=1; bh=aGFzaA==; b=; d=example.com", got)
	})

	t.Run("keeps_bh_tag_intact", func(t *testing.T) {
		got := emptyBValue("v=1; bh=aGFzaA==; b=c2ln")
		require.Equal(t, "v=1; bh=aGFzaA==; b=", got)
	})

	t.Run("unfolds_continuation_lines", func(t *testing.T) {
		got := emptyBValue("v=1;\r\n b=c2ln\r\n bmF0dXJl; d=example.com")
		require.Equal(t, "v=1; b=; d=example.com", got)
	})
}
