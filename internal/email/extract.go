package email

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"
)

// SignedHeader is the reconstructed byte sequence covered by one
// DKIM-Signature, together with the material needed to verify it.
type SignedHeader struct {
	Domain    string // d= signing domain
	Selector  string // s= selector
	HashAlgo  string // hash algorithm from a=
	Header    []byte // length-prefixed canonical header bytes
	Signature []byte // decoded b= value
}

// ExtractResult is the outcome for one DKIM-Signature candidate. A failed
// candidate keeps its error so the caller can report which signature was
// rejected and why.
type ExtractResult struct {
	SignedHeader *SignedHeader
	Err          error
}

// ExtractSignedHeaders splits a raw message and reconstructs, for every
// DKIM-Signature header found (vendor variants included), the canonicalized
// header block that was signed: that one signature header with its b= value
// emptied plus all non-signature headers, in original order. The body hash is
// checked against the signature's bh= tag before a candidate is accepted.
func ExtractSignedHeaders(raw []byte) ([]ExtractResult, error) {
	hdrBlock, body, err := splitMessage(raw)
	if err != nil {
		return nil, err
	}
	hdrs, err := parseHeaders(hdrBlock)
	if err != nil {
		return nil, err
	}

	var candidates []int
	for i, h := range hdrs {
		if isDKIMSignatureName(h.lkey) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no dkim-signature header", ErrMalformedEmail)
	}

	results := make([]ExtractResult, 0, len(candidates))
	for _, ci := range candidates {
		sh, err := extractCandidate(hdrs, ci, body)
		results = append(results, ExtractResult{SignedHeader: sh, Err: err})
	}
	return results, nil
}

func extractCandidate(hdrs []header, ci int, body []byte) (*SignedHeader, error) {
	sig, err := parseSignature(hdrs[ci].value)
	if err != nil {
		return nil, err
	}
	hdrMode, bodyMode := splitCanonicalization(sig.Canonicalization)
	if hdrMode != canonSimple && hdrMode != canonRelaxed {
		return nil, fmt.Errorf("%w: unknown header canonicalization %q", ErrMalformedEmail, sig.Canonicalization)
	}
	if bodyMode != canonSimple && bodyMode != canonRelaxed {
		return nil, fmt.Errorf("%w: unknown body canonicalization %q", ErrMalformedEmail, sig.Canonicalization)
	}

	// The body hash is computed with the hash named in a=, even when the
	// verifier will later refuse the algorithm, so the caller learns about a
	// body mismatch before an algorithm failure.
	var h hash.Hash
	switch sig.HashAlgo {
	case "sha256":
		h = sha256.New()
	case "sha1":
		h = sha1.New()
	default:
		return nil, fmt.Errorf("%w: unknown hash algorithm %q in dkim-signature", ErrMalformedEmail, sig.HashAlgo)
	}
	bh := bodyHash(h, body, bodyMode, sig.Length)
	if !bytes.Equal(bh, sig.BodyHash) {
		return nil, fmt.Errorf("%w: domain %s selector %s: signature bodyhash %x, calculated %x",
			ErrBodyHashMismatch, sig.Domain, sig.Selector, sig.BodyHash, bh)
	}

	var lines []string
	for i, hd := range hdrs {
		if isDKIMSignatureName(hd.lkey) {
			if i != ci {
				continue
			}
			// The signature header itself is included under its canonical
			// name with the b= value emptied.
			value := emptyBValue(hd.value)
			lines = append(lines, canonicalHeaderLine("dkim-signature", value, "dkim-signature:"+value, hdrMode))
			continue
		}
		lines = append(lines, canonicalHeaderLine(hd.key, hd.value, hd.raw, hdrMode))
	}
	canonical := []byte(joinCRLF(lines))

	return &SignedHeader{
		Domain:    sig.Domain,
		Selector:  sig.Selector,
		HashAlgo:  sig.HashAlgo,
		Header:    EncodeSignedHeader(canonical),
		Signature: sig.Signature,
	}, nil
}

// joinCRLF joins lines with CRLF separators, no trailing CRLF on the last.
func joinCRLF(lines []string) string {
	var b bytes.Buffer
	for i, l := range lines {
		if i > 0 {
			b.Write(crlf)
		}
		b.WriteString(l)
	}
	return b.String()
}
