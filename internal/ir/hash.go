package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainConfig = "aircore/config/v1"
	DomainTick   = "aircore/tick/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ConfigHash computes a content address for a compiled configuration.
// Recordings store it so replay refuses to run against a different config.
func ConfigHash(cfg *Config) (string, error) {
	canonical, err := MarshalConfig(cfg)
	if err != nil {
		return "", fmt.Errorf("ConfigHash: %w", err)
	}
	return hashWithDomain(DomainConfig, canonical), nil
}

// TickHash computes a content address for one tick's published outputs.
func TickHash(tick uint64, outputs map[string]Value) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"tick":    tick,
		"outputs": outputs,
	})
	if err != nil {
		return "", fmt.Errorf("TickHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTick, canonical), nil
}
