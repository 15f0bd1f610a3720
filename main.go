package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"terp/config"
	"terp/interpreter"
	"terp/provider"
	"terp/storage"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cliFlags struct {
	autoRun      bool
	local        bool
	fast         bool
	debug        bool
	model        string
	providerName string
	ollamaHost   string
}

func rootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "terp [message]",
		Short: "Chat with a language model that writes and runs code on your machine",
		Long: `terp streams a model's response, detects when it starts writing code,
asks for confirmation, runs the code, and feeds the output back to the
model until it produces a final answer.

With no arguments it starts an interactive session; with arguments it
answers once and exits.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(flags, args)
		},
	}

	cmd.Flags().BoolVarP(&flags.autoRun, "yes", "y", false, "run detected code without asking")
	cmd.Flags().BoolVarP(&flags.local, "local", "l", false, "use a local Ollama model instead of a cloud service")
	cmd.Flags().BoolVarP(&flags.fast, "fast", "f", false, "use a faster, cheaper model")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "write verbose logs to debug.log in the data directory")
	cmd.Flags().StringVar(&flags.model, "model", "", "model name (overrides configuration)")
	cmd.Flags().StringVar(&flags.providerName, "provider", "", "completion service: openai, anthropic, or ollama")
	cmd.Flags().StringVar(&flags.ollamaHost, "ollama-host", "", "Ollama server URL")

	return cmd
}

func run(flags cliFlags, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flags.debug || config.CheckDebug() {
		config.InitDebugLog(cfg.DataDirectory)
	}

	providerType := provider.Type(cfg.Provider)
	if flags.providerName != "" {
		providerType = provider.Type(flags.providerName)
	}
	if flags.local {
		providerType = provider.TypeOllama
	}
	if flags.ollamaHost != "" {
		cfg.OllamaHost = flags.ollamaHost
	}

	model := resolveModel(flags, cfg, providerType)

	creds := config.NewCredentialStore(config.SecurityMethod(cfg.Security), cfg.SSHKeyPath)
	if err := creds.Load(cfg.DataDirectory); err != nil {
		return err
	}
	apiKey := creds.APIKey(string(providerType))
	if apiKey == "" && providerType != provider.TypeOllama {
		return fmt.Errorf("no API key for %s: set %s or add it to the credential store", providerType, envKeyName(providerType))
	}

	p, err := provider.NewProvider(providerConfig(cfg, providerType, model, apiKey))
	if err != nil {
		return err
	}

	store, err := storage.NewSessionStorage(cfg.DataDirectory)
	if err != nil {
		return err
	}
	index, err := storage.NewSearchIndex(cfg.DataDirectory, store)
	if err != nil {
		return err
	}

	opts := interpreter.Options{
		Provider:      p,
		AutoRun:       flags.autoRun,
		Temperature:   cfg.Temperature,
		SystemMessage: cfg.SystemPrompt,
		Store:         store,
		Index:         index,
	}
	if providerType == provider.TypeOllama {
		opts.MaxTokens = cfg.MaxTokens
		opts.ContextWindow = cfg.ContextWindow
	}

	interp := interpreter.New(opts)
	defer interp.Close()

	// Interrupt ends the current turn; the transcript keeps what arrived.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if len(args) > 0 {
		interp.AppendUserMessage(strings.Join(args, " "))
		return interp.Respond(ctx)
	}

	fmt.Printf("terp — %s (%s)\nType a message, or %%help for commands. Ctrl-D exits.\n", p.Model(), providerType)
	return interp.Chat(ctx)
}

// providerConfig assembles the factory config. The Ollama host only applies
// to the Ollama provider; cloud providers default to their own endpoints
// when the base URL is left empty.
func providerConfig(cfg *config.Config, providerType provider.Type, model, apiKey string) provider.Config {
	pc := provider.Config{
		Type:   providerType,
		Model:  model,
		APIKey: apiKey,
	}
	if providerType == provider.TypeOllama {
		pc.BaseURL = cfg.OllamaHost
	}
	return pc
}

func resolveModel(flags cliFlags, cfg *config.Config, providerType provider.Type) string {
	if flags.model != "" {
		return flags.model
	}
	if flags.fast && providerType == provider.TypeOpenAI {
		return "gpt-3.5-turbo"
	}
	if cfg.Model != "" {
		return cfg.Model
	}
	switch providerType {
	case provider.TypeOpenAI:
		return "gpt-4"
	case provider.TypeOllama:
		return "codellama"
	default:
		// Anthropic picks its own default.
		return ""
	}
}

func envKeyName(providerType provider.Type) string {
	switch providerType {
	case provider.TypeAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
