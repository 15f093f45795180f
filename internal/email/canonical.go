package email

import (
	"bytes"
	"hash"
	"strings"
)

// Canonicalization modes per RFC 6376 section 3.4.
const (
	canonSimple  = "simple"
	canonRelaxed = "relaxed"
)

// splitCanonicalization splits a c= value into header and body modes.
// "relaxed" alone means "relaxed/simple".
func splitCanonicalization(c string) (hdrMode, bodyMode string) {
	if c == "" {
		return canonSimple, canonSimple
	}
	hdrMode, bodyMode, ok := strings.Cut(strings.ToLower(c), "/")
	if !ok {
		bodyMode = canonSimple
	}
	return hdrMode, bodyMode
}

// relaxedValue canonicalizes a header value per the relaxed algorithm:
// unfold continuation lines, compress runs of space/tab to a single space,
// and trim surrounding whitespace.
func relaxedValue(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "")
	var b strings.Builder
	var prevSpace bool
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == ' ' || c == '\t' {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteByte(c)
	}
	return strings.Trim(b.String(), " ")
}

// canonicalHeaderLine renders one header field in the canonical form used in
// the signed header block: lower-cased name, colon, single space, relaxed
// value. In simple mode the field is kept byte for byte as it occurred.
func canonicalHeaderLine(name, value, raw, mode string) string {
	if mode == canonSimple {
		return raw
	}
	return strings.ToLower(name) + ": " + relaxedValue(value)
}

// bodyHash computes the canonicalized body hash. limit is the l= byte count
// of canonical body to hash, or -1 for the whole body.
func bodyHash(h hash.Hash, body []byte, mode string, limit int64) []byte {
	canon := canonicalBody(body, mode)
	if limit >= 0 && limit < int64(len(canon)) {
		canon = canon[:limit]
	}
	h.Write(canon)
	return h.Sum(nil)
}

// canonicalBody canonicalizes the message body. Simple mode reduces trailing
// empty lines to a single CRLF. Relaxed mode additionally strips trailing
// whitespace from each line and compresses inner whitespace runs.
func canonicalBody(body []byte, mode string) []byte {
	if mode == canonSimple {
		if len(body) == 0 {
			return []byte("\r\n")
		}
		out := bytes.Clone(body)
		for bytes.HasSuffix(out, []byte("\r\n\r\n")) {
			out = out[:len(out)-2]
		}
		if !bytes.HasSuffix(out, crlf) {
			out = append(out, crlf...)
		}
		return out
	}

	lines := bytes.Split(body, crlf)
	var out bytes.Buffer
	// Trailing empty lines are dropped entirely in relaxed mode.
	end := len(lines)
	for end > 0 && len(bytes.TrimRight(lines[end-1], " \t")) == 0 {
		end--
	}
	for _, line := range lines[:end] {
		line = bytes.TrimRight(line, " \t")
		var prevSpace bool
		for _, c := range line {
			if c == ' ' || c == '\t' {
				if prevSpace {
					continue
				}
				prevSpace = true
				out.WriteByte(' ')
				continue
			}
			prevSpace = false
			out.WriteByte(c)
		}
		out.Write(crlf)
	}
	return out.Bytes()
}
