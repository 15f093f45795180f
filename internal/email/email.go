// Package email implements the DKIM side of email-driven wallet recovery:
// splitting a raw message into header and body, canonicalizing the signed
// header set, checking the body hash, and parsing the canonical header block
// into the fixed set of signed fields the recovery engine binds against.
//
// The package does no DNS lookups and no network I/O. Raw message bytes and
// public key material are supplied by the caller.
package email

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Parse failures. All are terminal for the message being processed.
var (
	ErrMalformedEmail          = errors.New("email: malformed message")
	ErrBodyHashMismatch        = errors.New("email: body hash does not match signature")
	ErrHeaderLengthMismatch    = errors.New("email: header length prefix does not match payload")
	ErrUnrecognizedHeaderField = errors.New("email: unrecognized header field")
)

var crlf = []byte("\r\n")

// header is a single header field as it occurred in the message.
type header struct {
	key   string // Field name in original case.
	lkey  string // Field name in lower-case.
	value string // Field value, possibly folded over multiple lines, excluding name and colon.
	raw   string // Complete field including name and colon, excluding the final CRLF.
}

// splitMessage splits a raw message at the first blank line into the header
// block and the body. The body retains its own line endings.
func splitMessage(raw []byte) (hdr, body []byte, err error) {
	i := bytes.Index(raw, []byte("\r\n\r\n"))
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: no header/body boundary", ErrMalformedEmail)
	}
	return raw[:i], raw[i+4:], nil
}

// parseHeaders parses a header block into individual fields, unfolding
// continuation lines. Folded lines keep their leading whitespace in value
// and raw, so canonicalization can normalize them per its own rules.
func parseHeaders(block []byte) ([]header, error) {
	var hdrs []header
	var cur *header
	for _, lineb := range bytes.Split(block, crlf) {
		line := string(lineb)
		if line == "" {
			return nil, fmt.Errorf("%w: empty header line", ErrMalformedEmail)
		}
		if line[0] == ' ' || line[0] == '\t' {
			if cur == nil {
				return nil, fmt.Errorf("%w: message starts with continuation line", ErrMalformedEmail)
			}
			cur.value += "\r\n" + line
			cur.raw += "\r\n" + line
			continue
		}
		if cur != nil {
			hdrs = append(hdrs, *cur)
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("%w: header line without colon", ErrMalformedEmail)
		}
		name = strings.TrimRight(name, " \t")
		if name == "" {
			return nil, fmt.Errorf("%w: empty header field name", ErrMalformedEmail)
		}
		for _, c := range name {
			if c <= ' ' || c >= 0x7f {
				return nil, fmt.Errorf("%w: invalid header field name %q", ErrMalformedEmail, name)
			}
		}
		cur = &header{
			key:   name,
			lkey:  strings.ToLower(name),
			value: value,
			raw:   line,
		}
	}
	if cur != nil {
		hdrs = append(hdrs, *cur)
	}
	if len(hdrs) == 0 {
		return nil, fmt.Errorf("%w: no header fields", ErrMalformedEmail)
	}
	return hdrs, nil
}

// isDKIMSignatureName reports whether a lower-cased header name carries a
// DKIM signature, including vendor-prefixed variants such as
// x-google-dkim-signature.
func isDKIMSignatureName(lkey string) bool {
	return lkey == "dkim-signature" || strings.HasSuffix(lkey, "-dkim-signature")
}
