// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Helmgate Contributors

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/helmgate-dev/helmgate/internal/catalog"
	"github.com/helmgate-dev/helmgate/internal/executor"
	"github.com/helmgate-dev/helmgate/internal/routing"
	"github.com/helmgate-dev/helmgate/internal/server"
	"github.com/helmgate-dev/helmgate/internal/statestore"
	helmerr "github.com/helmgate-dev/helmgate/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/spec.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing spec: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI spec written to %s\n", outPath)
}

// generateSpec wires a server over empty components so every route is
// registered, then extracts the OpenAPI spec huma builds from the Go
// type annotations. Handlers are never invoked.
func generateSpec() ([]byte, error) {
	cat, err := catalog.Parse([]byte("models: []"))
	if err != nil {
		return nil, err
	}

	kv := statestore.NewMemory()
	cooldown := routing.NewCooldown(kv, routing.CooldownConfig{}, nil)
	decider := routing.NewDecider(cat, routing.NewStateReader(kv, nil), cooldown,
		routing.DeciderConfig{}, nil)

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, server.Services{
		Decider:  decider,
		Executor: executor.New(nil, cooldown, nil, nil),
		Cooldown: cooldown,
	}, nil)
	if err != nil {
		return nil, helmerr.Wrap(err, helmerr.CodeServerStartFailure, "creating server")
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}
