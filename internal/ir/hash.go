package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a later algorithm change without ambiguity.
const (
	DomainLayout = "graphscript/layout/v1"
	DomainSignal = "graphscript/signal/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint returns the content hash of a class layout.
// Two compiles of an unchanged script produce the same fingerprint even
// though their timestamps differ.
func Fingerprint(rc *RuntimeClass) string {
	return hashWithDomain(DomainLayout, []byte(Dump(rc)))
}

// SignalHash identifies a signal by type, sender and parameters.
func SignalHash(sig Signal) (string, error) {
	params, err := MarshalCanonical(sig.Params)
	if err != nil {
		return "", fmt.Errorf("SignalHash: %w", err)
	}
	data := slices.Concat([]byte(sig.Type.String()), []byte{0x00}, []byte(sig.Sender.String()), []byte{0x00}, params)
	return hashWithDomain(DomainSignal, data), nil
}

func sortKeysRFC8785(keys []string) {
	slices.SortFunc(keys, compareKeysRFC8785)
}
