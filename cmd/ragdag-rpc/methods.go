package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brunobiangulo/ragdag"
	"github.com/brunobiangulo/ragdag/ask"
	"github.com/brunobiangulo/ragdag/search"
)

// registerMethods binds one handler per library operation, named
// "ragdag.<operation>", onto r.
func registerMethods(r *router, s *ragdag.Store) {
	r.register("ragdag.add", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Paths  []string `json:"paths"`
			Domain string   `json:"domain"`
			Flat   bool     `json:"flat"`
			Embed  bool     `json:"embed"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		res, err := s.Add(ctx, p.Paths, ragdag.AddOptions{Domain: p.Domain, Flat: p.Flat, Embed: p.Embed})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ingested %d files (%d chunks, %d skipped)", res.Files, res.Chunks, res.Skipped), nil
	})

	r.register("ragdag.search", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Query  string `json:"query"`
			Domain string `json:"domain"`
			Mode   string `json:"mode"`
			TopK   int    `json:"top_k"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		results, err := s.Search(ctx, p.Query, ragdag.SearchOptions{Domain: p.Domain, Mode: search.Mode(p.Mode), TopK: p.TopK})
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "no results", nil
		}
		var b strings.Builder
		for i, r := range results {
			fmt.Fprintf(&b, "%d. %s (score %.4f)\n", i+1, r.Path, r.Score)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	})

	r.register("ragdag.ask", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Question string `json:"question"`
			Domain   string `json:"domain"`
			UseLLM   bool   `json:"use_llm"`
			TopK     int    `json:"top_k"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		result, err := s.Ask(ctx, p.Question, ask.Options{Domain: p.Domain, TopK: p.TopK, UseLLM: p.UseLLM})
		if err != nil {
			return "", err
		}
		if result.HasAnswer {
			return result.Answer, nil
		}
		return result.Context, nil
	})

	r.register("ragdag.graph", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Domain string `json:"domain"`
		}
		json.Unmarshal(raw, &p)
		summary, err := s.Graph(p.Domain)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("domains=%d documents=%d chunks=%d edges=%d", summary.Domains, summary.Documents, summary.Chunks, summary.Edges), nil
	})

	r.register("ragdag.neighbors", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Node string `json:"node"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		outgoing, incoming, err := s.Neighbors(p.Node)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, e := range outgoing {
			fmt.Fprintf(&b, "-> %s [%s]\n", e.Peer, e.Type)
		}
		for _, e := range incoming {
			fmt.Fprintf(&b, "<- %s [%s]\n", e.Peer, e.Type)
		}
		if b.Len() == 0 {
			return "no neighbors", nil
		}
		return strings.TrimRight(b.String(), "\n"), nil
	})

	r.register("ragdag.trace", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Node string `json:"node"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		hops, err := s.Trace(p.Node)
		if err != nil {
			return "", err
		}
		var b strings.Builder
		for _, h := range hops {
			fmt.Fprintf(&b, "%s (%s)\n", h.Node, h.EdgeType)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	})

	r.register("ragdag.relate", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Domain    string  `json:"domain"`
			Threshold float64 `json:"threshold"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		if p.Threshold <= 0 {
			p.Threshold = 0.75
		}
		n, err := s.Relate(p.Domain, p.Threshold)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("added %d related_to edges", n), nil
	})

	r.register("ragdag.link", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Source string `json:"source"`
			Target string `json:"target"`
			Type   string `json:"type"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		edgeType := p.Type
		if edgeType == "" {
			edgeType = "references"
		}
		if err := s.Link(p.Source, p.Target, edgeType); err != nil {
			return "", err
		}
		return fmt.Sprintf("linked %s -> %s [%s]", p.Source, p.Target, edgeType), nil
	})

	r.register("ragdag.verify", func(ctx context.Context, raw json.RawMessage) (string, error) {
		report, err := s.Verify()
		if err != nil {
			return "", err
		}
		if !report.Issues() {
			return "no issues found", nil
		}
		return fmt.Sprintf("manifest_mismatches=%d orphan_edges=%d stale_records=%d meta_missing=%v",
			len(report.ManifestMismatches), report.OrphanEdges, report.StaleRecords, report.MetaMissing), nil
	})

	r.register("ragdag.repair", func(ctx context.Context, raw json.RawMessage) (string, error) {
		n, err := s.Repair()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("removed %d orphan edges", n), nil
	})

	r.register("ragdag.gc", func(ctx context.Context, raw json.RawMessage) (string, error) {
		report, err := s.Gc()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("removed %d edges, %d stale records", report.EdgesRemoved, report.RecordsRemoved), nil
	})

	r.register("ragdag.reindex", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Domain string `json:"domain"`
		}
		json.Unmarshal(raw, &p)
		n, err := s.Reindex(ctx, p.Domain)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("reindexed %d chunks", n), nil
	})

	r.register("ragdag.build_index", func(ctx context.Context, raw json.RawMessage) (string, error) {
		var p struct {
			Path string `json:"path"`
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return "", fmt.Errorf("invalid params: %w", err)
		}
		if p.Path == "" {
			return "", fmt.Errorf("path is required")
		}
		if err := s.BuildIndex(p.Path); err != nil {
			return "", err
		}
		return fmt.Sprintf("built index at %s", p.Path), nil
	})
}
