// Package cmd provides the CLI commands for ragbase.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragbase/ragbase/internal/assistant"
	"github.com/ragbase/ragbase/internal/chunk"
	"github.com/ragbase/ragbase/internal/config"
	"github.com/ragbase/ragbase/internal/embed"
	"github.com/ragbase/ragbase/internal/logging"
	"github.com/ragbase/ragbase/internal/store"
)

var (
	configPath  string
	promptsPath string
	debugMode   bool

	cfg            *config.Config
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ragbase CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragbase",
		Short: "Retrieval-augmented question answering over local documents",
		Long: `Ragbase indexes a directory of text documents into a vector
knowledge base and answers questions about them with a language model,
citing the document fragments each answer drew on.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (YAML)")
	cmd.PersistentFlags().StringVar(&promptsPath, "prompts", "", "Path to prompts file (YAML)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.PersistentPreRunE = setupConfigAndLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSummarizeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupConfigAndLogging(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Logging.Level
	if cfg.Logging.Enabled {
		logCfg.FilePath = cfg.Logging.LogFile
	}
	if debugMode {
		logCfg.Level = "debug"
	}

	loggingCleanup, err = logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	return nil
}

// buildAssistant assembles the full pipeline from the loaded config. The
// chat model is only required by commands that actually generate text, so
// a missing API key under the static embedding provider still allows
// rebuild and status to run.
func buildAssistant() (*assistant.Assistant, error) {
	embedder, err := newEmbedder()
	if err != nil {
		return nil, err
	}

	prompts, err := assistant.LoadPrompts(promptsPath)
	if err != nil {
		return nil, err
	}

	var chat assistant.ChatCompleter
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		completer, err := assistant.NewOpenAICompleter(apiKey, cfg.Embedding.BaseURL, cfg.GPT.Model)
		if err != nil {
			return nil, err
		}
		chat = completer
	}

	return assistant.New(assistant.Options{
		Name:        cfg.KnowledgeBase.Name,
		Description: cfg.KnowledgeBase.Description,
		DataPath:    cfg.KnowledgeBase.DataPath,
		IndexPath:   cfg.KnowledgeBase.IndexPath,
		Extensions:  cfg.KnowledgeBase.Extensions,
		UseMarkdown: cfg.KnowledgeBase.UseMarkdownProcessing,
		SearchK:     cfg.KnowledgeBase.SearchK,
		Temperature: cfg.GPT.Temperature,
		MaxTokens:   cfg.GPT.MaxTokens,
		Prompts:     prompts,
	}, chunk.NewSplitter(cfg.KnowledgeBase.ChunkSize), store.New(embedder), chat), nil
}

func newEmbedder() (embed.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderStatic:
		return embed.NewStaticEmbedder(), nil
	default:
		retry := embed.DefaultRetryConfig()
		if cfg.Embedding.MaxRetries > 0 {
			retry.MaxRetries = cfg.Embedding.MaxRetries
		}
		return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Embedding.Model,
			OnError: embed.OnErrorPolicy(strings.ToLower(cfg.Embedding.OnError)),
			Retry:   retry,
		})
	}
}
