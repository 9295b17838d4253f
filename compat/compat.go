// Package compat holds the small deterministic primitives shared by every
// ragdag component: path sanitization, content hashing, token estimation,
// timestamp formatting and store discovery.
package compat

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StoreDirName is the name of the store root directory.
const StoreDirName = ".ragdag"

// ErrStoreNotFound is returned by FindStore when no ancestor directory
// contains a .ragdag child.
var ErrStoreNotFound = errors.New("compat: no .ragdag store found in any ancestor directory")

// Sanitize returns the longest subsequence of characters from
// [a-z0-9._-] found in s, after lowercasing. It is idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(s string) string {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HashFile streams the contents of path through SHA-256 and returns the
// lowercase hex digest.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("compat: hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("compat: hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the lowercase hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// EstimateTokens approximates the number of LLM tokens in text using the
// fixed formula words*13/10. This approximation is deliberately crude but
// must be reproduced exactly: callers that budget context windows depend
// on its determinism.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return words * 13 / 10
}

// FindStore walks from dir upward through parent directories looking for a
// child named .ragdag. It returns the path to that .ragdag directory, or
// ErrStoreNotFound if none of dir's ancestors (inclusive) contain one.
func FindStore(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("compat: resolving %s: %w", dir, err)
	}

	cur := abs
	for {
		candidate := filepath.Join(cur, StoreDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", ErrStoreNotFound
		}
		cur = parent
	}
}

// NowISO returns the current UTC time formatted as
// YYYY-MM-DDThh:mm:ssZ.
func NowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}
