// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides a client for OpenAI-compatible chat completion APIs.
//
// The same client talks to OpenAI and to OpenRouter; only the base URL,
// the default model and a pair of attribution headers differ.
//
// # Key Types
//
//   - Client: HTTP client for the /chat/completions endpoint
//   - ChatMessage: chat message in the OpenAI wire format
//   - APIError: structured error decoded from a non-200 response
//
// # Usage
//
//	client := cloud.NewClient(cloud.ProviderOpenAI, apiKey)
//	reply, err := client.Complete(ctx, transcript.Messages())
//
// Requests are single request/response round trips (stream=false). The
// client never retries; a failed call is reported to the caller as is.
//
// # Security
//
// API keys are never logged. Only a short SHA-256 fingerprint is exposed.
package cloud
