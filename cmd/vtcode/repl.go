package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vtcode/vtcode/internal/agent"
	"github.com/vtcode/vtcode/internal/agent/providers"
	"github.com/vtcode/vtcode/internal/commands"
	"github.com/vtcode/vtcode/internal/config"
	"github.com/vtcode/vtcode/internal/pty"
	"github.com/vtcode/vtcode/internal/sessions"
	"github.com/vtcode/vtcode/internal/tools/exec"
	"github.com/vtcode/vtcode/internal/tools/files"
	"github.com/vtcode/vtcode/internal/transcript"
	"github.com/vtcode/vtcode/pkg/models"
)

// runRepl starts the interactive read-eval-print loop: read a line, send it
// through the agent runtime, stream the response to the terminal.
func runRepl(cmd *cobra.Command, configPath string, debug bool) error {
	if debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return err
	}

	store := sessions.NewMemoryStore()
	workspace := cfg.Workspace.Path
	if workspace == "" {
		workspace = "."
	}

	runtime := agent.NewRuntimeWithOptions(provider, store, agent.RuntimeOptions{
		MaxIterations:   32,
		ToolParallelism: 4,
		ToolTimeout:     2 * time.Minute,
	})
	registerReplTools(runtime, workspace)

	// transcriptStore buffers rendered lines for replay/export (e.g. /resume,
	// session inspection tooling) independent of the terminal's own scrollback.
	transcriptStore := transcript.New(transcript.DefaultCapacity, 100)

	registry := commands.NewRegistry(slog.Default())
	commands.RegisterBuiltins(registry)
	parser := commands.NewParser(registry)
	registerTranscriptCommand(registry, transcriptStore)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	session, err := store.GetOrCreate(ctx, sessions.SessionKey(cfg.Session.DefaultAgentID, models.ChannelREPL, "local"),
		cfg.Session.DefaultAgentID, models.ChannelREPL, "local")
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}

	historyPath := replHistoryPath()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "\033[36mvtcode>\033[0m ",
		HistoryFile:       historyPath,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "vtcode REPL. Type /help for commands, Ctrl+D to exit.")

	echo := func(format string, args ...any) {
		line := fmt.Sprintf(format, args...)
		fmt.Fprint(out, line)
		transcriptStore.Append(strings.TrimRight(line, "\n"))
	}

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if parsed := parser.ParseCommand(input); parsed != nil {
			result, err := registry.Execute(ctx, &commands.Invocation{
				Name:       parsed.Name,
				Args:       parsed.Args,
				RawText:    input,
				SessionKey: session.Key,
			})
			if err != nil {
				echo("error: %v\n", err)
				continue
			}
			if result != nil {
				if result.Error != "" {
					echo("%s\n", result.Error)
				} else {
					echo("%s\n", result.Text)
				}
			}
			if input == "/exit" || input == "/quit" {
				return nil
			}
			continue
		}

		msg := &models.Message{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			Channel:   models.ChannelREPL,
			Direction: models.DirectionInbound,
			Role:      models.RoleUser,
			Content:   input,
			CreatedAt: time.Now(),
		}

		chunks, err := runtime.Process(ctx, session, msg)
		if err != nil {
			echo("error: %v\n", err)
			continue
		}
		for chunk := range chunks {
			if chunk.Error != nil {
				echo("\nerror: %v\n", chunk.Error)
				continue
			}
			if chunk.Text != "" {
				echo("%s", chunk.Text)
			}
			if chunk.ToolEvent != nil {
				echo("\n[tool %s: %s]\n", chunk.ToolEvent.ToolName, chunk.ToolEvent.Stage)
			}
		}
		fmt.Fprintln(out)
	}
}

// registerTranscriptCommand adds "/transcript" to dump the buffered session
// output, useful for copying a run's output without terminal scrollback.
func registerTranscriptCommand(registry *commands.Registry, store *transcript.Store) {
	_ = registry.Register(&commands.Command{
		Name:        "transcript",
		Description: "Print the buffered session transcript",
		Category:    "session",
		Source:      "builtin",
		Handler: func(ctx context.Context, inv *commands.Invocation) (*commands.Result, error) {
			return &commands.Result{Text: strings.Join(store.Snapshot(), "\n")}, nil
		},
	})
}

func replHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vtcode_history"
	}
	dir := filepath.Join(home, ".vtcode")
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "history")
}

// registerReplTools wires the local filesystem and process-execution tools
// into the runtime so the REPL can read/write/edit files and run commands.
func registerReplTools(runtime *agent.Runtime, workspace string) {
	fileCfg := files.Config{Workspace: workspace, MaxReadBytes: 256 * 1024}
	runtime.RegisterTool(files.NewReadTool(fileCfg))
	runtime.RegisterTool(files.NewWriteTool(fileCfg))
	runtime.RegisterTool(files.NewEditTool(fileCfg))
	runtime.RegisterTool(files.NewApplyPatchTool(fileCfg))

	execManager := exec.NewManager(workspace)
	runtime.RegisterTool(exec.NewExecTool("run_command", execManager))
	runtime.RegisterTool(exec.NewProcessTool(execManager))

	ptyManager := pty.NewManager(workspace)
	runtime.RegisterTool(pty.NewTool(ptyManager))
}

// buildProvider constructs the LLMProvider selected by cfg.LLM.DefaultProvider.
func buildProvider(cfg *config.Config) (agent.LLMProvider, error) {
	name := cfg.LLM.DefaultProvider
	if name == "" {
		name = "anthropic"
	}
	providerCfg := cfg.LLM.Providers[name]

	switch name {
	case "openai":
		apiKey := providerCfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		return providers.NewOpenAIProvider(apiKey), nil
	case "google":
		apiKey := providerCfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		return providers.NewGoogleProvider(providers.GoogleConfig{
			APIKey:       apiKey,
			DefaultModel: providerCfg.DefaultModel,
		})
	case "anthropic", "":
		apiKey := providerCfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       apiKey,
			BaseURL:      providerCfg.BaseURL,
			MaxRetries:   3,
			RetryDelay:   time.Second,
			DefaultModel: providerCfg.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", name)
	}
}
