package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Key prefixes partition the shared store by concern and make
// pattern-based bulk deletes possible.
const (
	ResponsePrefix = "ai:response:"
	GeocodePrefix  = "map:geocode:"
	WeatherPrefix  = "map:weather:"
)

// DeriveKey computes the deterministic cache key for a completion.
// The key material is the canonical JSON of {prompt, provider,
// ...params}: encoding/json sorts map keys recursively, so parameter
// ordering never changes the digest.
func DeriveKey(prompt, provider string, params map[string]any) string {
	material := make(map[string]any, len(params)+2)
	for k, v := range params {
		material[k] = v
	}
	material["prompt"] = prompt
	material["provider"] = provider

	canonical, _ := json.Marshal(material)
	sum := sha256.Sum256(canonical)
	return ResponsePrefix + hex.EncodeToString(sum[:])
}
