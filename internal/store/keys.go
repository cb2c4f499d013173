package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
)

// GraphKey derives the cache key for a graph built from the given source
// file: a digest of path, size, and modification time. Rebuilding from an
// unchanged file hits the cache; any change invalidates it.
func GraphKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", eris.Wrapf(err, "store: stat %s", path)
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ConfigKey digests any JSON-serializable configuration value, so a sweep
// is keyed by the exact parameters that produced it.
func ConfigKey(cfg any) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", eris.Wrap(err, "store: marshal config key")
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
