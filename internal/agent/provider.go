// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jeranaias/personachat/internal/cloud"
	"github.com/jeranaias/personachat/internal/config"
	"github.com/jeranaias/personachat/internal/ollama"
)

// NewProvider builds the completion provider named in cfg.
func NewProvider(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case config.ProviderOpenAI, config.ProviderOpenRouter:
		c := cloud.NewClient(cfg.Name, cfg.APIKey)
		if !c.IsConfigured() {
			return nil, errors.Wrapf(cloud.ErrNotConfigured,
				"set PERSONACHAT_API_KEY or provider.api_key for %s", cfg.Name)
		}
		if cfg.BaseURL != "" {
			c.WithBaseURL(cfg.BaseURL)
		}
		if cfg.Model != "" {
			c.WithModel(cfg.Model)
		}
		if cfg.Temperature > 0 {
			c.WithTemperature(cfg.Temperature)
		}
		if t := cfg.Timeout(); t > 0 {
			c.WithTimeout(t)
		}
		return c, nil

	case config.ProviderOllama:
		return ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:      cfg.BaseURL,
			Timeout:      cfg.Timeout(),
			DefaultModel: cfg.Model,
			Temperature:  cfg.Temperature,
		}), nil

	default:
		return nil, errors.Errorf("unknown provider %q", cfg.Name)
	}
}

// ConfigFactory returns a Factory that builds a fresh provider from cfg for
// every agent. Provider errors, such as a missing credential, surface when
// the driver initializes rather than at startup.
func ConfigFactory(cfg config.ProviderConfig) Factory {
	return func(_ context.Context, opts Options) (*Agent, error) {
		p, err := NewProvider(cfg)
		if err != nil {
			return nil, err
		}
		return New(p, opts)
	}
}

// Describe returns "provider/model" for display.
func Describe(p Provider) string {
	if m, ok := p.(interface{ Model() string }); ok && m.Model() != "" {
		return p.Name() + "/" + m.Model()
	}
	return p.Name()
}
