// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the personachat command line: the cobra command
// tree, the line-oriented chat REPL and the one-shot ask command.
//
// # Commands
//
//	personachat              full-screen chat (falls back to the REPL without a TTY)
//	personachat chat         line-oriented chat
//	personachat ask <text>   one question, one answer
//	personachat serve        browser front-end
//	personachat personas     list personas
//	personachat config       show, get or set configuration
//	personachat version      build information
package cli
