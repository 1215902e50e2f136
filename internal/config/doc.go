// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for personachat.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - ProviderConfig: Completion backend, credential and model
//   - AgentConfig: Agent type, assistant label and greeting
//   - PersonaConfig: Startup persona and catalog override
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the caller)
//   - Environment variables (PERSONACHAT_*, OPENAI_API_KEY, OPENROUTER_API_KEY)
//   - .env in the working directory
//   - ~/.personachat/config.toml or --config
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Provider.Model)
package config
