// Package graph implements the ragdag edge-log graph operations: store
// summary counts, neighbor listing, provenance trace, semantic relate, and
// manual link.
package graph

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/brunobiangulo/ragdag/embed"
	"github.com/brunobiangulo/ragdag/similarity"
	"github.com/brunobiangulo/ragdag/store"
)

// maxTraceDepth bounds provenance walks even in the absence of cycles.
const maxTraceDepth = 20

// Summary counts domains, documents, chunks, edges and per-type edge
// counts. An empty store yields all-zero counts.
type Summary struct {
	Domains       int
	Documents     int
	Chunks        int
	Edges         int
	EdgesByType   map[string]int
}

// BuildSummary scans storeRoot (optionally restricted to domain) for its
// domain/document/chunk counts, and scans the full edge log for edge
// counts. Edge counts are always store-wide; they are not scoped per
// domain.
func BuildSummary(s *store.Store, domain string) (Summary, error) {
	sum := Summary{EdgesByType: map[string]int{}}

	domains, err := chunkBearingDirs(s.Root)
	if err != nil {
		return Summary{}, err
	}
	for _, domDir := range domains {
		name := filepath.Base(domDir)
		if domain != "" && name != domain {
			continue
		}
		sum.Domains++
		docs, err := os.ReadDir(domDir)
		if err != nil {
			continue
		}
		for _, doc := range docs {
			if !doc.IsDir() {
				continue
			}
			sum.Documents++
			chunks, err := os.ReadDir(filepath.Join(domDir, doc.Name()))
			if err != nil {
				continue
			}
			for _, c := range chunks {
				if !c.IsDir() && strings.HasSuffix(c.Name(), ".txt") {
					sum.Chunks++
				}
			}
		}
	}

	edges, err := s.ReadEdges()
	if err != nil {
		return Summary{}, err
	}
	sum.Edges = len(edges)
	for _, e := range edges {
		sum.EdgesByType[e.Type]++
	}
	return sum, nil
}

// chunkBearingDirs returns the first-level, non-dot subdirectories of root
// (candidate domain directories).
func chunkBearingDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs, nil
}

// Direction marks an edge as outgoing ("→", source == node) or incoming
// ("←", target == node) relative to the queried node.
type Direction string

const (
	Outgoing Direction = "→"
	Incoming Direction = "←"
)

// NeighborEdge is one edge incident to the queried node.
type NeighborEdge struct {
	Direction Direction
	Peer      string
	Type      string
	Metadata  string
}

// Neighbors scans the edge log and splits edges incident to node into
// outgoing and incoming lists.
func Neighbors(s *store.Store, node string) (outgoing, incoming []NeighborEdge, err error) {
	edges, err := s.ReadEdges()
	if err != nil {
		return nil, nil, err
	}
	for _, e := range edges {
		switch {
		case e.Source == node:
			outgoing = append(outgoing, NeighborEdge{Direction: Outgoing, Peer: e.Target, Type: e.Type, Metadata: e.Metadata})
		case e.Target == node:
			incoming = append(incoming, NeighborEdge{Direction: Incoming, Peer: e.Source, Type: e.Type, Metadata: e.Metadata})
		}
	}
	return outgoing, incoming, nil
}

// TraceHop is one step of a provenance walk.
type TraceHop struct {
	Node       string
	EdgeType   string
	IsOrigin   bool // true when Node has no parent, or would revisit a prior node
}

// Trace walks backward from node through chunked_from/derived_via edges
// (source == current hop), emitting one hop per step. It stops at a
// revisited node or a node with no parent (marking that hop as origin),
// or after maxTraceDepth hops, whichever comes first.
func Trace(s *store.Store, node string) ([]TraceHop, error) {
	edges, err := s.ReadEdges()
	if err != nil {
		return nil, err
	}

	parentOf := make(map[string]store.Edge)
	for _, e := range edges {
		if e.Type != "chunked_from" && e.Type != "derived_via" {
			continue
		}
		if _, exists := parentOf[e.Source]; !exists {
			parentOf[e.Source] = e
		}
	}

	var hops []TraceHop
	visited := map[string]bool{}
	current := node
	for depth := 0; depth < maxTraceDepth; depth++ {
		if visited[current] {
			hops = append(hops, TraceHop{Node: current, IsOrigin: true})
			return hops, nil
		}
		visited[current] = true

		e, ok := parentOf[current]
		if !ok {
			hops = append(hops, TraceHop{Node: current, IsOrigin: true})
			return hops, nil
		}
		hops = append(hops, TraceHop{Node: current, EdgeType: e.Type})
		current = e.Target
	}
	return hops, nil
}

// Relate computes pairwise cosine similarity over every chunk pair with
// present embeddings within scope (a domain, or the whole store when
// domain is ""), appending a related_to edge for pairs at or above
// threshold that do not already have a related_to edge in either
// direction. Domains without embeddings.bin are skipped. Returns the
// number of edges added; no embeddings anywhere is a no-op, not an error.
func Relate(s *store.Store, domain string, threshold float64) (int, error) {
	existing, err := s.ReadEdges()
	if err != nil {
		return 0, err
	}
	dedup := make(map[string]bool, len(existing))
	for _, e := range existing {
		if e.Type != "related_to" {
			continue
		}
		dedup[e.Source+"\x00"+e.Target] = true
		dedup[e.Target+"\x00"+e.Source] = true
	}

	domains, err := resolveRelateDomains(s.Root, domain)
	if err != nil {
		return 0, err
	}

	var newEdges []store.Edge
	for _, domDir := range domains {
		hdr, vectors, err := embed.Read(domDir)
		if err != nil {
			continue
		}
		manifest, err := embed.LoadManifest(domDir)
		if err != nil || len(manifest) != int(hdr.Count) {
			continue
		}
		for i := 0; i < len(manifest); i++ {
			for j := i + 1; j < len(manifest); j++ {
				scores := similarity.Cosine(vectors[i], vectors[j:j+1])
				if scores[0] < threshold {
					continue
				}
				a, b := manifest[i], manifest[j]
				if dedup[a+"\x00"+b] {
					continue
				}
				dedup[a+"\x00"+b] = true
				dedup[b+"\x00"+a] = true
				newEdges = append(newEdges, store.Edge{Source: a, Target: b, Type: "related_to"})
			}
		}
	}

	if len(newEdges) == 0 {
		return 0, nil
	}
	if err := s.AppendEdges(newEdges); err != nil {
		return 0, err
	}
	return len(newEdges), nil
}

func resolveRelateDomains(root, domain string) ([]string, error) {
	if domain != "" {
		return []string{filepath.Join(root, domain)}, nil
	}
	dirs, err := chunkBearingDirs(root)
	if err != nil {
		return nil, err
	}
	return append(dirs, root), nil
}

// Link appends a single edge between source and target. edgeType defaults
// to "references" when empty. Arguments are trusted strings; no existence
// check is performed against the chunk tree.
func Link(s *store.Store, source, target, edgeType string) error {
	if edgeType == "" {
		edgeType = "references"
	}
	return s.AppendEdges([]store.Edge{{Source: source, Target: target, Type: edgeType}})
}
