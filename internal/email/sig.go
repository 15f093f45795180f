package email

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// signature is the parsed form of a DKIM-Signature header value.
type signature struct {
	Algorithm        string // a= signing algorithm, e.g. "rsa"
	HashAlgo         string // a= hash algorithm, "sha256" or "sha1"
	Canonicalization string // c= value as written
	Domain           string // d= signing domain
	Selector         string // s= selector
	SignedHeaders    []string
	BodyHash         []byte // decoded bh=
	Signature        []byte // decoded b=
	Length           int64  // l= body length, -1 when absent
}

// parseSignature parses a DKIM-Signature header value into its tag list.
// Unknown tags are ignored. Required tags are a, b, bh, d and s.
func parseSignature(value string) (*signature, error) {
	sig := &signature{Length: -1}
	seen := map[string]bool{}
	unfolded := strings.ReplaceAll(value, "\r\n", "")
	for _, part := range strings.Split(unfolded, ";") {
		part = strings.Trim(part, " \t")
		if part == "" {
			continue
		}
		tag, val, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%w: dkim-signature tag without value", ErrMalformedEmail)
		}
		tag = strings.Trim(tag, " \t")
		val = strings.Trim(val, " \t")
		if seen[tag] {
			return nil, fmt.Errorf("%w: duplicate dkim-signature tag %q", ErrMalformedEmail, tag)
		}
		seen[tag] = true

		switch tag {
		case "v":
			if val != "1" {
				return nil, fmt.Errorf("%w: dkim-signature version %q", ErrMalformedEmail, val)
			}
		case "a":
			signAlg, hashAlg, ok := strings.Cut(strings.ToLower(val), "-")
			if !ok {
				return nil, fmt.Errorf("%w: dkim-signature algorithm %q", ErrMalformedEmail, val)
			}
			sig.Algorithm = signAlg
			sig.HashAlgo = hashAlg
		case "b":
			b, err := decodeBase64Folded(val)
			if err != nil {
				return nil, fmt.Errorf("%w: dkim-signature b= tag: %v", ErrMalformedEmail, err)
			}
			sig.Signature = b
		case "bh":
			b, err := decodeBase64Folded(val)
			if err != nil {
				return nil, fmt.Errorf("%w: dkim-signature bh= tag: %v", ErrMalformedEmail, err)
			}
			sig.BodyHash = b
		case "c":
			sig.Canonicalization = val
		case "d":
			sig.Domain = strings.ToLower(val)
		case "s":
			sig.Selector = strings.ToLower(val)
		case "h":
			for _, f := range strings.Split(val, ":") {
				sig.SignedHeaders = append(sig.SignedHeaders, strings.ToLower(strings.Trim(f, " \t")))
			}
		case "l":
			var n int64
			for _, c := range val {
				if c < '0' || c > '9' {
					return nil, fmt.Errorf("%w: dkim-signature l= tag %q", ErrMalformedEmail, val)
				}
				n = n*10 + int64(c-'0')
			}
			sig.Length = n
		}
	}

	for _, req := range []string{"a", "b", "bh", "d", "s"} {
		if !seen[req] {
			return nil, fmt.Errorf("%w: dkim-signature missing %s= tag", ErrMalformedEmail, req)
		}
	}
	return sig, nil
}

// decodeBase64Folded decodes base64 that may contain folding whitespace.
func decodeBase64Folded(s string) ([]byte, error) {
	var b strings.Builder
	for _, c := range s {
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			continue
		}
		b.WriteRune(c)
	}
	return base64.StdEncoding.DecodeString(b.String())
}

// emptyBValue returns the signature header value with the b= tag's value
// removed, as required when reconstructing the signed byte sequence.
func emptyBValue(value string) string {
	unfolded := strings.ReplaceAll(value, "\r\n", "")
	parts := strings.Split(unfolded, ";")
	for i, part := range parts {
		trimmed := strings.TrimLeft(part, " \t")
		if strings.HasPrefix(trimmed, "b=") {
			lead := part[:len(part)-len(trimmed)]
			parts[i] = lead + "b="
		}
	}
	return strings.Join(parts, ";")
}
