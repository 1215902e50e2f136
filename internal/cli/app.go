// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jeranaias/personachat/internal/agent"
	"github.com/jeranaias/personachat/internal/config"
	"github.com/jeranaias/personachat/internal/driver"
	"github.com/jeranaias/personachat/internal/model"
	"github.com/jeranaias/personachat/internal/ollama"
	"github.com/jeranaias/personachat/internal/persona"
	"github.com/jeranaias/personachat/internal/session"
	"github.com/jeranaias/personachat/internal/ui/chat"
	"github.com/jeranaias/personachat/internal/ui/styles"
)

// App holds what every front-end needs to start a conversation.
type App struct {
	Config  *config.Config
	Catalog *persona.Catalog

	factory agent.Factory
}

// NewApp loads the persona catalog named by cfg and prepares the agent
// factory. The provider itself is built lazily on every initialization.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	catalog, err := persona.Load(cfg.Persona.File)
	if err != nil {
		return nil, errors.Wrap(err, "load personas")
	}
	return &App{
		Config:  cfg,
		Catalog: catalog,
		factory: agent.ConfigFactory(cfg.Provider),
	}, nil
}

// WithFactory replaces the agent factory. Tests use it to avoid the network.
func (a *App) WithFactory(f agent.Factory) *App {
	a.factory = f
	return a
}

// NewSession creates an independent session and the driver that owns it.
func (a *App) NewSession() (*session.Store, *driver.Driver, error) {
	store := session.NewStore()
	d, err := driver.New(store, driver.Options{
		Factory:   a.factory,
		Catalog:   a.Catalog,
		AgentType: agent.Type(a.Config.Agent.Type),
		Labels:    model.Labels{Assistant: a.Config.Agent.AssistantName},
		Greeting:  a.Config.Agent.Greeting,
		Persona:   a.Config.Persona.Default,
	})
	if err != nil {
		return nil, nil, err
	}
	return store, d, nil
}

// Backend describes the configured provider, e.g. "openai/gpt-3.5-turbo".
// When the provider can be built its effective model is shown, defaults
// included.
func (a *App) Backend() string {
	if p, err := agent.NewProvider(a.Config.Provider); err == nil {
		return agent.Describe(p)
	}
	p := a.Config.Provider
	if p.Model == "" {
		return p.Name
	}
	return p.Name + "/" + p.Model
}

// Preflight checks that a local Ollama server answers before a long-running
// front-end starts. Cloud providers are not contacted.
func (a *App) Preflight(ctx context.Context) error {
	if a.Config.Provider.Name != config.ProviderOllama {
		return nil
	}
	p, err := agent.NewProvider(a.Config.Provider)
	if err != nil {
		return err
	}
	c, ok := p.(*ollama.Client)
	if !ok {
		return nil
	}
	return errors.Wrap(c.CheckRunning(ctx), "ollama preflight")
}

// ChatOptions returns the full-screen chat options for this configuration.
func (a *App) ChatOptions() chat.Options {
	return chat.Options{
		Personas:       a.Catalog.Names(),
		Theme:          styles.NewTheme(a.Config.UI.Theme),
		Markdown:       a.Config.UI.Markdown,
		ShowTimestamps: a.Config.UI.ShowTimestamps,
		Backend:        a.Backend(),
	}
}
