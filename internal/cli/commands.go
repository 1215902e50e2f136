// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeranaias/personachat/internal/config"
	"github.com/jeranaias/personachat/internal/logging"
	"github.com/jeranaias/personachat/internal/ui/chat"
	"github.com/jeranaias/personachat/internal/web"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// rootFlags are the persistent flags shared by every command.
type rootFlags struct {
	configPath string
	persona    string
	provider   string
	model      string
	logLevel   string
	logFile    string
}

// runtime carries state from PersistentPreRunE to the commands.
type runtime struct {
	info   BuildInfo
	flags  rootFlags
	cfg    *config.Config
	closer io.Closer
}

// Execute runs the root command with signal-aware cancellation.
func Execute(info BuildInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand(info).ExecuteContext(ctx)
}

// NewRootCommand builds the personachat command tree.
func NewRootCommand(info BuildInfo) *cobra.Command {
	rt := &runtime{info: info}

	root := &cobra.Command{
		Use:   "personachat",
		Short: "Chat with a language model, optionally in character",
		Long: `personachat forwards your messages to a chat-completion API and shows the
conversation. Pick a persona to have the assistant answer in character.

Without a terminal it falls back to the line-oriented chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return rt.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if rt.closer != nil {
				return rt.closer.Close()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !Interactive() {
				return rt.runREPL(cmd.Context())
			}
			return rt.runTUI(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&rt.flags.configPath, "config", "", "config file (default ~/.personachat/config.toml)")
	pf.StringVar(&rt.flags.persona, "persona", "", "initial persona (\"none\" for no persona)")
	pf.StringVar(&rt.flags.provider, "provider", "", "completion provider: openai, openrouter or ollama")
	pf.StringVar(&rt.flags.model, "model", "", "model name sent to the provider")
	pf.StringVar(&rt.flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	pf.StringVar(&rt.flags.logFile, "log-file", "", "write logs to this file")

	root.AddCommand(
		rt.chatCommand(),
		rt.askCommand(),
		rt.serveCommand(),
		rt.personasCommand(),
		rt.configCommand(),
		rt.versionCommand(),
	)
	return root
}

// setup loads configuration, applies flag overrides and installs logging.
func (rt *runtime) setup(cmd *cobra.Command) error {
	personaSet := cmd.Flags().Changed("persona")
	cfg, err := config.Load(rt.flags.configPath, func(c *config.Config) {
		if personaSet {
			c.Persona.Default = rt.flags.persona
		}
		if rt.flags.provider != "" {
			c.Provider.Name = rt.flags.provider
		}
		if rt.flags.model != "" {
			c.Provider.Model = rt.flags.model
		}
		if rt.flags.logLevel != "" {
			c.Log.Level = rt.flags.logLevel
		}
		if rt.flags.logFile != "" {
			c.Log.File = rt.flags.logFile
		}
	})
	if err != nil {
		return err
	}

	logFile := cfg.Log.File
	if logFile == "" && ownsTerminal(cmd) {
		if p, err := config.DefaultLogPath(); err == nil {
			logFile = p
		}
	}
	closer, err := logging.Setup(logging.Options{
		Level: cfg.Log.Level,
		File:  logFile,
		JSON:  cfg.Log.JSON,
	})
	if err != nil {
		return err
	}

	rt.cfg = cfg
	rt.closer = closer
	log.Debug().Str("command", cmd.Name()).Str("provider", cfg.Provider.Name).Msg("configuration loaded")
	return nil
}

// ownsTerminal reports whether cmd draws on the terminal, in which case logs
// go to the default log file instead of stderr.
func ownsTerminal(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "personachat", "chat", "ask":
		return true
	}
	return false
}

func (rt *runtime) app() (*App, error) {
	return NewApp(rt.cfg)
}

func (rt *runtime) runTUI(ctx context.Context) error {
	a, err := rt.app()
	if err != nil {
		return err
	}
	store, d, err := a.NewSession()
	if err != nil {
		return err
	}
	return chat.Run(ctx, d, store, a.ChatOptions())
}

func (rt *runtime) runREPL(ctx context.Context) error {
	a, err := rt.app()
	if err != nil {
		return err
	}
	_, d, err := a.NewSession()
	if err != nil {
		return err
	}
	return RunREPL(ctx, d)
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func (rt *runtime) chatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Line-oriented chat with slash commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rt.runREPL(cmd.Context())
		},
	}
}

func (rt *runtime) askCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.app()
			if err != nil {
				return err
			}
			_, d, err := a.NewSession()
			if err != nil {
				return err
			}
			markdown := rt.cfg.UI.Markdown && IsStdoutTTY()
			return Ask(cmd.Context(), d, strings.Join(args, " "), cmd.OutOrStdout(), markdown)
		},
	}
}

func (rt *runtime) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the browser chat",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.app()
			if err != nil {
				return err
			}
			if err := a.Preflight(cmd.Context()); err != nil {
				log.Warn().Err(err).Str("provider", rt.cfg.Provider.Name).Msg("provider not reachable, sessions will fail until it is")
			}
			if addr == "" {
				addr = rt.cfg.Server.Addr
			}
			srv, err := web.New(web.Options{
				Addr:            addr,
				ShutdownTimeout: time.Duration(rt.cfg.Server.ShutdownSecs) * time.Second,
				Catalog:         a.Catalog,
				NewSession:      a.NewSession,
				AllowedOrigins:  rt.cfg.Server.AllowedOrigins,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (rt *runtime) personasCommand() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List available personas",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := rt.app()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range a.Catalog.All() {
				if !show {
					fmt.Fprintln(out, p.Name)
					continue
				}
				fmt.Fprintln(out, TitleStyle.Render(p.Name))
				fmt.Fprintln(out, DimStyle.Render(strings.TrimSpace(p.Instruction)))
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "print each persona's instruction")
	return cmd
}

func (rt *runtime) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration (API key redacted)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(rt.cfg.Redacted())
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := rt.configPath()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List configuration keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				for _, k := range config.Keys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one effective value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := rt.cfg.Redacted().Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Write one value to the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := rt.configPath()
				if err != nil {
					return err
				}
				return setConfigValue(path, args[0], args[1])
			},
		},
	)
	return cmd
}

// setConfigValue updates one key in the file at path, leaving environment
// overrides out of what gets written.
func setConfigValue(path, key, value string) error {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.SaveTOML(cfg, path)
}

func (rt *runtime) configPath() (string, error) {
	if rt.flags.configPath != "" {
		return rt.flags.configPath, nil
	}
	return config.ConfigPath()
}

func (rt *runtime) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "personachat %s\n", rt.info.Version)
			fmt.Fprintf(out, "%s %s\n", LabelStyle.Render("commit"), rt.info.GitCommit)
			fmt.Fprintf(out, "%s %s\n", LabelStyle.Render("built"), rt.info.BuildDate)
		},
	}
}
