// Command ragdag-rpc exposes every library operation as a JSON-RPC 2.0
// method over stdio, newline-delimited request in, newline-delimited
// response out, for driving the engine as a subprocess tool.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/brunobiangulo/ragdag"
)

func main() {
	storePath := flag.String("store", ".", "Path to the ragdag store")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	s, err := ragdag.Open(*storePath)
	if err != nil {
		log.Error("opening store", "path", *storePath, "error", err)
		os.Exit(1)
	}

	r := newRouter(log)
	registerMethods(r, s)

	if err := r.serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		log.Error("rpc server stopped", "error", err)
		os.Exit(1)
	}
}
