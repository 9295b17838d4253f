// Package maintain implements the ragdag upkeep operations: verify,
// repair, gc, and reindex, all operating on the store's persisted
// invariants (manifest/header consistency, edge provenance, processed-log
// freshness).
package maintain

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/brunobiangulo/ragdag/embed"
	"github.com/brunobiangulo/ragdag/store"
)

// isChunkNode reports whether a node string looks like a store-relative
// chunk path (".txt" suffix, no leading path separator) rather than an
// absolute source path or a synthetic query_ node.
func isChunkNode(node string) bool {
	return strings.HasSuffix(node, ".txt") && !strings.HasPrefix(node, "/") && !strings.HasPrefix(node, "query_")
}

func chunkExists(storeRoot, relPath string) bool {
	_, err := os.Stat(filepath.Join(storeRoot, filepath.FromSlash(relPath)))
	return err == nil
}

// domainDirs lists the store root itself (for flat-mode ingests) and its
// first-level, non-dot subdirectories: the candidate domain directories
// that may carry embeddings.bin.
func domainDirs(storeRoot string) ([]string, error) {
	entries, err := os.ReadDir(storeRoot)
	if err != nil {
		return nil, err
	}
	dirs := []string{storeRoot}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(storeRoot, e.Name()))
		}
	}
	return dirs, nil
}

func hasEmbeddings(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, embed.BinName))
	return err == nil
}

func sourceFileExists(absPath string) bool {
	_, err := os.Stat(absPath)
	return err == nil
}
