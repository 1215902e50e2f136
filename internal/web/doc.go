// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package web serves the browser chat.
//
// Every websocket connection owns one session and driver. The server pushes
// the rendered view after each change:
//
//	{"type":"state","view":{...}}
//	{"type":"error","error":"\"Gandalf\": unknown persona"}
//
// and accepts:
//
//	{"type":"submit","text":"Hello"}
//	{"type":"persona","persona":"Harry Potter"}
//	{"type":"retry"}
//	{"type":"input","text":"Hel"}
package web
