// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with a local
// Ollama server.
//
// Only the non-streaming /api/chat endpoint and a reachability check are
// used: every completion is a single request/response round trip.
//
// # Usage
//
//	client := ollama.NewClientWithConfig(&ollama.ClientConfig{DefaultModel: "llama3.2"})
//	if err := client.CheckRunning(ctx); err != nil {
//	    return err
//	}
//	reply, err := client.Complete(ctx, transcript.Messages())
package ollama
