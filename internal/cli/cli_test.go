// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/personachat/internal/agent"
	"github.com/jeranaias/personachat/internal/config"
	"github.com/jeranaias/personachat/internal/driver"
	"github.com/jeranaias/personachat/internal/model"
)

// scriptedProvider replies with reply, failing the next failNext calls.
type scriptedProvider struct {
	mu       sync.Mutex
	reply    string
	failNext int
	calls    int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(_ context.Context, _ []model.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failNext > 0 {
		p.failNext--
		return "", errors.New("connection refused")
	}
	return p.reply, nil
}

// scriptedLines feeds the REPL a fixed sequence of lines, then io.EOF.
type scriptedLines struct {
	lines   []string
	history []string
	// before runs ahead of returning the line at that index.
	before map[int]func()
	next   int
}

func (s *scriptedLines) Prompt(string) (string, error) {
	if fn, ok := s.before[s.next]; ok {
		fn()
	}
	if s.next >= len(s.lines) {
		return "", io.EOF
	}
	line := s.lines[s.next]
	s.next++
	return line, nil
}

func (s *scriptedLines) AppendHistory(item string) { s.history = append(s.history, item) }

func testApp(t *testing.T, p agent.Provider) *App {
	t.Helper()
	cfg := config.Default()
	a, err := NewApp(cfg)
	require.NoError(t, err)
	return a.WithFactory(agent.StaticFactory(p))
}

func runREPL(t *testing.T, p agent.Provider, in *scriptedLines) string {
	t.Helper()
	_, d, err := testApp(t, p).NewSession()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, NewREPL(d, in, &out).Run(context.Background()))
	return out.String()
}

// =============================================================================
// APP
// =============================================================================

func TestNewApp_BuiltinCatalog(t *testing.T) {
	a, err := NewApp(config.Default())
	require.NoError(t, err)
	assert.Equal(t, 11, a.Catalog.Len())
	assert.Equal(t, "openai", a.Backend())

	a.Config.Provider.Model = "gpt-4o-mini"
	assert.Equal(t, "openai/gpt-4o-mini", a.Backend())
}

func TestBackend_ShowsEffectiveModel(t *testing.T) {
	a, err := NewApp(config.Default())
	require.NoError(t, err)
	a.Config.Provider.APIKey = "sk-test"
	assert.Equal(t, "openai/gpt-3.5-turbo", a.Backend(), "default model is filled in once the provider builds")

	a.Config.Provider.Name = config.ProviderOllama
	assert.Equal(t, "ollama/llama3.2", a.Backend())
}

func TestPreflight(t *testing.T) {
	t.Run("ollama reachable", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("Ollama is running"))
		}))
		defer ts.Close()

		a, err := NewApp(config.Default())
		require.NoError(t, err)
		a.Config.Provider.Name = config.ProviderOllama
		a.Config.Provider.BaseURL = ts.URL
		assert.NoError(t, a.Preflight(context.Background()))
	})

	t.Run("ollama down", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := ts.URL
		ts.Close()

		a, err := NewApp(config.Default())
		require.NoError(t, err)
		a.Config.Provider.Name = config.ProviderOllama
		a.Config.Provider.BaseURL = url
		err = a.Preflight(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ollama preflight")
	})

	t.Run("cloud providers are not contacted", func(t *testing.T) {
		a, err := NewApp(config.Default())
		require.NoError(t, err)
		assert.NoError(t, a.Preflight(context.Background()))
	})
}

func TestNewApp_MissingPersonaFile(t *testing.T) {
	cfg := config.Default()
	cfg.Persona.File = "/nonexistent/personas.yaml"
	_, err := NewApp(cfg)
	assert.Error(t, err)
}

func TestApp_NewSessionIsIndependent(t *testing.T) {
	a := testApp(t, &scriptedProvider{reply: "Hi there"})
	s1, _, err := a.NewSession()
	require.NoError(t, err)
	s2, _, err := a.NewSession()
	require.NoError(t, err)
	assert.NotEqual(t, s1.SessionID(), s2.SessionID())
}

func TestApp_NewSessionUnknownDefaultPersona(t *testing.T) {
	a := testApp(t, &scriptedProvider{})
	a.Config.Persona.Default = "Gandalf"
	_, _, err := a.NewSession()
	assert.Error(t, err)
}

// =============================================================================
// REPL
// =============================================================================

func TestREPL_GreetingAndReply(t *testing.T) {
	in := &scriptedLines{lines: []string{"Hello", "   "}}
	out := runREPL(t, &scriptedProvider{reply: "Hi there"}, in)

	assert.Contains(t, out, "ChatGPT: Ready to answer your questions")
	assert.Contains(t, out, "ChatGPT is typing...")
	assert.Equal(t, 1, strings.Count(out, "ChatGPT: Hi there"))
	assert.NotContains(t, out, "User: Hello")
	assert.Equal(t, []string{"Hello"}, in.history)
}

func TestREPL_PersonaCommands(t *testing.T) {
	in := &scriptedLines{lines: []string{"/persona harry potter", "/persona", "/personas"}}
	out := runREPL(t, &scriptedProvider{reply: "Blimey, hello!"}, in)

	assert.Contains(t, out, "ChatGPT: Blimey, hello!")
	assert.Contains(t, out, "Persona: Harry Potter")
	assert.Contains(t, out, "* Harry Potter")
	assert.Contains(t, out, "  none")
}

func TestREPL_UnknownPersona(t *testing.T) {
	in := &scriptedLines{lines: []string{"/persona Gandalf", "/persona"}}
	out := runREPL(t, &scriptedProvider{reply: "Hi there"}, in)

	assert.Contains(t, out, "Unknown persona: Gandalf")
	assert.Contains(t, out, "Persona: none")
}

func TestREPL_FailureThenRetry(t *testing.T) {
	p := &scriptedProvider{reply: "Hi there"}
	in := &scriptedLines{
		lines:  []string{"Hello", "Again", "/retry"},
		before: map[int]func(){0: func() { p.mu.Lock(); p.failNext = 1; p.mu.Unlock() }},
	}
	out := runREPL(t, p, in)

	assert.Contains(t, out, "Error: scripted completion: connection refused")
	assert.Contains(t, out, "Type /retry")
	assert.Contains(t, out, "The conversation failed. Type /retry first.")
	assert.Equal(t, 1, strings.Count(out, "ChatGPT: Hi there"))
	assert.Equal(t, 2, p.calls)
}

func TestREPL_RetryWithoutFailure(t *testing.T) {
	out := runREPL(t, &scriptedProvider{reply: "Hi there"}, &scriptedLines{lines: []string{"/retry"}})
	assert.Contains(t, out, "Nothing to retry.")
}

func TestREPL_QuitStopsReading(t *testing.T) {
	p := &scriptedProvider{reply: "Hi there"}
	in := &scriptedLines{lines: []string{"/quit", "Hello"}}
	runREPL(t, p, in)

	assert.Equal(t, 1, in.next)
	assert.Equal(t, 0, p.calls)
}

func TestREPL_UnknownCommandAndHelp(t *testing.T) {
	out := runREPL(t, &scriptedProvider{reply: "Hi there"}, &scriptedLines{lines: []string{"/dance", "/help"}})
	assert.Contains(t, out, "Unknown command: /dance")
	assert.Contains(t, out, "/persona [name]")
}

type abortingReader struct{}

func (abortingReader) Prompt(string) (string, error) { return "", liner.ErrPromptAborted }
func (abortingReader) AppendHistory(string)          {}

func TestREPL_CtrlCExits(t *testing.T) {
	_, d, err := testApp(t, &scriptedProvider{reply: "Hi there"}).NewSession()
	require.NoError(t, err)
	assert.NoError(t, NewREPL(d, abortingReader{}, io.Discard).Run(context.Background()))
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk(t *testing.T) {
	_, d, err := testApp(t, &scriptedProvider{reply: "Hi there"}).NewSession()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Ask(context.Background(), d, "Hello", &out, false))
	assert.Equal(t, "Hi there\n", out.String())
	assert.Equal(t, 3, d.Snapshot().Transcript.Len())
}

func TestAsk_Errors(t *testing.T) {
	_, d, err := testApp(t, &scriptedProvider{reply: "Hi there"}).NewSession()
	require.NoError(t, err)
	assert.Error(t, Ask(context.Background(), d, "  ", io.Discard, false))

	p := &scriptedProvider{reply: "Hi there", failNext: 1}
	_, d, err = testApp(t, p).NewSession()
	require.NoError(t, err)
	err = Ask(context.Background(), d, "Hello", io.Discard, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, d.Snapshot().Failed())
}

func TestAsk_NotReadyAfterFailedInit(t *testing.T) {
	_, d, err := testApp(t, &scriptedProvider{failNext: 1}).NewSession()
	require.NoError(t, err)

	err = Ask(context.Background(), d, "Hello", io.Discard, false)
	require.Error(t, err)
	assert.False(t, errors.Is(err, driver.ErrBusy))
}
