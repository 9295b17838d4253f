package maintain

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/brunobiangulo/ragdag/embed"
	"github.com/brunobiangulo/ragdag/store"
)

func init() {
	sqlite_vec.Auto()
}

// serializeFloat32 packs a vector into the little-endian byte layout
// sqlite-vec's vec0 tables expect for a float[] column.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

var notIdentChar = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// tableSuffix turns a domain name into a safe SQL identifier fragment.
func tableSuffix(domain string) string {
	if domain == "" {
		domain = "root"
	}
	return notIdentChar.ReplaceAllString(domain, "_")
}

// BuildIndex mirrors a store's processed log, edge log, and per-domain
// embeddings into a disposable SQLite database at dbPath, for ad hoc SQL
// exploration and as an ANN sanity-check against the flat-file cosine
// scan. The database is entirely derived: nothing in the store's read or
// write paths ever consults it, and it is safe to delete and rebuild at
// any time. Callers should hold no store lock; BuildIndex only reads.
func BuildIndex(s *store.Store, dbPath string) error {
	os.Remove(dbPath)

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("maintain: opening index db: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE processed (path TEXT PRIMARY KEY, hash TEXT, domain TEXT, ts TEXT);
		CREATE TABLE edges (source TEXT, target TEXT, type TEXT, metadata TEXT);
		CREATE TABLE chunks (domain TEXT, rel_path TEXT PRIMARY KEY, content TEXT);
		CREATE INDEX edges_source_idx ON edges(source);
		CREATE INDEX edges_target_idx ON edges(target);
	`); err != nil {
		return fmt.Errorf("maintain: creating index schema: %w", err)
	}

	records, err := s.ReadProcessed()
	if err != nil {
		return fmt.Errorf("maintain: reading processed log: %w", err)
	}
	for _, r := range records {
		if _, err := db.Exec(`INSERT OR REPLACE INTO processed (path, hash, domain, ts) VALUES (?, ?, ?, ?)`,
			r.Path, r.Hash, r.Domain, r.Timestamp); err != nil {
			return fmt.Errorf("maintain: inserting processed record: %w", err)
		}
	}

	edges, err := s.ReadEdges()
	if err != nil {
		return fmt.Errorf("maintain: reading edges: %w", err)
	}
	chunksByDomain := make(map[string][]string)
	for _, e := range edges {
		if _, err := db.Exec(`INSERT INTO edges (source, target, type, metadata) VALUES (?, ?, ?, ?)`,
			e.Source, e.Target, e.Type, e.Metadata); err != nil {
			return fmt.Errorf("maintain: inserting edge: %w", err)
		}
		if e.Type == "chunked_from" && isChunkNode(e.Source) {
			domain := domainOfChunk(e.Source)
			chunksByDomain[domain] = append(chunksByDomain[domain], e.Source)
		}
	}

	for domain, relPaths := range chunksByDomain {
		for _, rel := range relPaths {
			data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(rel)))
			if err != nil {
				continue
			}
			if _, err := db.Exec(`INSERT OR REPLACE INTO chunks (domain, rel_path, content) VALUES (?, ?, ?)`,
				domain, rel, string(data)); err != nil {
				return fmt.Errorf("maintain: inserting chunk: %w", err)
			}
		}
	}

	dirs, err := domainDirs(s.Root)
	if err != nil {
		return fmt.Errorf("maintain: listing domains: %w", err)
	}
	for _, dir := range dirs {
		if !hasEmbeddings(dir) {
			continue
		}
		if err := indexDomainVectors(db, s.Root, dir); err != nil {
			return err
		}
	}

	return nil
}

// domainOfChunk derives a chunk's owning domain from its store-relative
// path: everything before the document directory. A flat-mode chunk
// (document directory directly under the store root) yields "".
func domainOfChunk(relPath string) string {
	dir := filepath.ToSlash(filepath.Dir(filepath.Dir(relPath)))
	if dir == "." {
		return ""
	}
	return dir
}

func indexDomainVectors(db *sql.DB, storeRoot, domainDir string) error {
	hdr, vectors, err := embed.Read(domainDir)
	if err != nil {
		return nil // Verify already flags corrupt embeddings; the index just skips them.
	}
	manifest, err := embed.LoadManifest(domainDir)
	if err != nil || len(manifest) != len(vectors) {
		return nil
	}

	domain, _ := filepath.Rel(storeRoot, domainDir)
	if domain == "." {
		domain = ""
	}
	suffix := tableSuffix(domain)

	if _, err := db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE vec_%s USING vec0(rowid INTEGER PRIMARY KEY, embedding float[%d])`, suffix, hdr.Dims)); err != nil {
		return fmt.Errorf("maintain: creating vec table for domain %q: %w", domain, err)
	}
	if _, err := db.Exec(fmt.Sprintf(
		`CREATE TABLE vec_%s_paths (rowid INTEGER PRIMARY KEY, rel_path TEXT)`, suffix)); err != nil {
		return fmt.Errorf("maintain: creating vec path table for domain %q: %w", domain, err)
	}

	for i, vec := range vectors {
		raw := serializeFloat32(vec)
		if _, err := db.Exec(fmt.Sprintf(`INSERT INTO vec_%s (rowid, embedding) VALUES (?, ?)`, suffix), i, raw); err != nil {
			return fmt.Errorf("maintain: inserting vector for domain %q: %w", domain, err)
		}
		if _, err := db.Exec(fmt.Sprintf(`INSERT INTO vec_%s_paths (rowid, rel_path) VALUES (?, ?)`, suffix), i, manifest[i]); err != nil {
			return fmt.Errorf("maintain: inserting vector path for domain %q: %w", domain, err)
		}
	}
	return nil
}
