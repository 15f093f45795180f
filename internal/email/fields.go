package email

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// The exact header field set a recovery email must carry, lower-case as
// canonicalized. Anything outside this set is a hard parse failure: silently
// ignoring extra fields would let unsigned content ride along.
var recognizedFields = []string{
	"to", "from", "subject", "message-id", "date", "mime-version", "dkim-signature",
}

// SignFields are the signed header fields of a recovery email, parsed from a
// length-prefixed canonical header block.
type SignFields struct {
	To            string
	From          string
	Subject       string
	MessageID     string
	Date          string
	MIMEVersion   string
	DKIMSignature string
}

// EncodeSignedHeader prefixes canonical header bytes with their big-endian
// 32-bit length, the wire form consumed by the recovery engine.
func EncodeSignedHeader(canonical []byte) []byte {
	out := make([]byte, 4+len(canonical))
	binary.BigEndian.PutUint32(out, uint32(len(canonical)))
	copy(out[4:], canonical)
	return out
}

// ParseSignedHeader validates the length prefix and parses the canonical
// header payload into the seven recognized sign fields. Every recognized
// field must be present exactly once; any other field name fails the parse.
func ParseSignedHeader(data []byte) (*SignFields, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d bytes, need at least 4", ErrHeaderLengthMismatch, len(data))
	}
	declared := binary.BigEndian.Uint32(data)
	payload := data[4:]
	if int(declared) != len(payload) {
		return nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrHeaderLengthMismatch, declared, len(payload))
	}

	fields := &SignFields{}
	seen := map[string]bool{}
	for _, line := range bytes.Split(payload, crlf) {
		key, value, ok := strings.Cut(string(line), ":")
		if !ok {
			return nil, fmt.Errorf("%w: header line without colon", ErrUnrecognizedHeaderField)
		}
		// Canonical form places a single character (the space) between the
		// colon and the value.
		if len(value) > 0 {
			value = value[1:]
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrUnrecognizedHeaderField, key)
		}
		seen[key] = true

		switch key {
		case "to":
			fields.To = value
		case "from":
			fields.From = value
		case "subject":
			fields.Subject = value
		case "message-id":
			fields.MessageID = value
		case "date":
			fields.Date = value
		case "mime-version":
			fields.MIMEVersion = value
		case "dkim-signature":
			fields.DKIMSignature = value
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnrecognizedHeaderField, key)
		}
	}
	for _, name := range recognizedFields {
		if !seen[name] {
			return nil, fmt.Errorf("%w: missing field %q", ErrUnrecognizedHeaderField, name)
		}
	}
	return fields, nil
}

// SenderAddress extracts the email address from the from field's
// "Display Name <addr>" format. Without angle brackets the whole value is
// taken as the address.
func (f *SignFields) SenderAddress() (string, error) {
	v := strings.TrimSpace(f.From)
	open := strings.IndexByte(v, '<')
	if open < 0 {
		if v == "" {
			return "", fmt.Errorf("%w: empty from field", ErrMalformedEmail)
		}
		return v, nil
	}
	close := strings.IndexByte(v[open:], '>')
	if close < 0 {
		return "", fmt.Errorf("%w: unterminated address in from field", ErrMalformedEmail)
	}
	addr := v[open+1 : open+close]
	if addr == "" {
		return "", fmt.Errorf("%w: empty address in from field", ErrMalformedEmail)
	}
	return addr, nil
}

// SenderDomain returns the domain of the sender address, the substring after
// the first "@".
func (f *SignFields) SenderDomain() (string, error) {
	addr, err := f.SenderAddress()
	if err != nil {
		return "", err
	}
	_, domain, ok := strings.Cut(addr, "@")
	if !ok || domain == "" {
		return "", fmt.Errorf("%w: sender address %q has no domain", ErrMalformedEmail, addr)
	}
	return domain, nil
}

// signedFieldOrder is the exact layout the signer hashed: each field as
// "name:value\r\n" with no trailing CRLF after the last. The order is fixed
// and must not depend on map iteration.
var signedFieldOrder = []string{
	"to", "subject", "message-id", "date", "from", "mime-version", "dkim-signature",
}

// Serialize reassembles the sign fields into the signed byte layout.
func (f *SignFields) Serialize() []byte {
	value := func(name string) string {
		switch name {
		case "to":
			return f.To
		case "subject":
			return f.Subject
		case "message-id":
			return f.MessageID
		case "date":
			return f.Date
		case "from":
			return f.From
		case "mime-version":
			return f.MIMEVersion
		default:
			return f.DKIMSignature
		}
	}
	var b bytes.Buffer
	for i, name := range signedFieldOrder {
		if i > 0 {
			b.Write(crlf)
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(value(name))
	}
	return b.Bytes()
}
