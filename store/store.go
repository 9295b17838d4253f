// Package store implements the ragdag flat-file persistence protocol: the
// store root layout, chunk placement, and the processed/edge logs.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brunobiangulo/ragdag/compat"
	"github.com/brunobiangulo/ragdag/config"
)

// metaVersion is the recognized store format version written to .meta.
const metaVersion = "ragdag-store/1"

// UnsortedDomain is the domain documents fall into when no domain rule
// matches and the caller did not request flat-mode ingestion.
const UnsortedDomain = "unsorted"

// Store is a handle to a single .ragdag directory. All write operations
// (Add, Link, Relate, Repair, Gc, Reindex, config Set) serialize through a
// single coarse mutex; read paths never take the lock.
type Store struct {
	Root   string
	Config *config.Store

	mu sync.Mutex
}

// Init creates a new store rooted at dir/.ragdag (or dir itself if dir's
// base name is already .ragdag) and writes its default files. It is
// idempotent: calling it again on an existing store only fills in files
// that are missing, leaving existing ones untouched.
func Init(dir string) (*Store, error) {
	root := dir
	if filepath.Base(dir) != compat.StoreDirName {
		root = filepath.Join(dir, compat.StoreDirName)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", root, err)
	}

	s := &Store{Root: root, Config: config.Open(filepath.Join(root, ".config"))}

	if !fileExists(s.configPath()) {
		if err := s.Config.WriteDefaults(); err != nil {
			return nil, fmt.Errorf("store: writing config defaults: %w", err)
		}
	}
	if !fileExists(s.ProcessedPath()) {
		if err := os.WriteFile(s.ProcessedPath(), []byte(processedHeader), 0o644); err != nil {
			return nil, fmt.Errorf("store: creating processed log: %w", err)
		}
	}
	if !fileExists(s.EdgesPath()) {
		if err := os.WriteFile(s.EdgesPath(), []byte(edgesHeader), 0o644); err != nil {
			return nil, fmt.Errorf("store: creating edge log: %w", err)
		}
	}
	if !fileExists(s.DomainRulesPath()) {
		if err := os.WriteFile(s.DomainRulesPath(), []byte(domainRulesHeader), 0o644); err != nil {
			return nil, fmt.Errorf("store: creating domain rules: %w", err)
		}
	}
	if !fileExists(s.MetaPath()) {
		if err := os.WriteFile(s.MetaPath(), []byte(metaVersion+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("store: creating meta file: %w", err)
		}
	}

	return s, nil
}

// Open binds a Store to an already-initialized .ragdag directory at root,
// without writing anything.
func Open(root string) *Store {
	return &Store{Root: root, Config: config.Open(filepath.Join(root, ".config"))}
}

// Lock acquires the store's write-serialization mutex. Callers performing a
// write path (add, link, relate, repair, gc, reindex, config set) must hold
// it for the duration of the operation. Read paths must never call Lock.
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

func (s *Store) configPath() string        { return filepath.Join(s.Root, ".config") }
func (s *Store) ProcessedPath() string     { return filepath.Join(s.Root, ".processed") }
func (s *Store) EdgesPath() string         { return filepath.Join(s.Root, ".edges") }
func (s *Store) DomainRulesPath() string   { return filepath.Join(s.Root, ".domain-rules") }
func (s *Store) MetaPath() string          { return filepath.Join(s.Root, ".meta") }
func (s *Store) PromptTemplatePath() string { return filepath.Join(s.Root, "prompt.txt") }

// DomainDir returns the filesystem path of domain's directory. An empty
// domain means flat mode: the store root itself.
func (s *Store) DomainDir(domain string) string {
	if domain == "" {
		return s.Root
	}
	return filepath.Join(s.Root, domain)
}

// DocDir returns the filesystem path of a document directory within domain
// (domain may be "" for flat mode).
func (s *Store) DocDir(domain, docName string) string {
	return filepath.Join(s.DomainDir(domain), docName)
}

// RelPath converts an absolute path under the store root to a
// store-relative, forward-slash path (e.g. "domain/doc/01.txt").
func (s *Store) RelPath(abs string) (string, error) {
	rel, err := filepath.Rel(s.Root, abs)
	if err != nil {
		return "", fmt.Errorf("store: computing relative path for %s: %w", abs, err)
	}
	return filepath.ToSlash(rel), nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

const processedHeader = "# source_path\tcontent_hash\tdomain\ttimestamp\n"
const edgesHeader = "# source\ttarget\ttype\tmetadata\n"
const domainRulesHeader = "# <space-separated patterns> -> <domain>\n"
