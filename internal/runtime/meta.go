package runtime

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// knownFamilies maps name prefixes to model families.
var knownFamilies = []string{"llama", "mistral", "mixtral", "phi", "gemma", "qwen", "codellama", "tinyllama", "smollm"}

// familyFromName derives the model family from a logical name prefix.
func familyFromName(name string) string {
	lower := strings.ToLower(name)
	for _, f := range knownFamilies {
		if strings.HasPrefix(lower, f) {
			if f == "tinyllama" || f == "codellama" {
				return "llama"
			}
			if f == "mixtral" {
				return "mistral"
			}
			return f
		}
	}
	return ""
}

// artifactDigest produces a short stable identifier from the artifact
// path and size. Not a content hash: hashing multi-GB weights on every
// load is not worth it for a display digest.
func artifactDigest(path string, size int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", path, size)))
	return hex.EncodeToString(sum[:6])
}
