package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildAssistant()
			if err != nil {
				return err
			}

			kb := a.KnowledgeBase()
			loaded := kb.Load(cfg.KnowledgeBase.IndexPath)

			fmt.Printf("Knowledge base: %s\n", cfg.KnowledgeBase.Name)
			if cfg.KnowledgeBase.Description != "" {
				fmt.Printf("Description:    %s\n", cfg.KnowledgeBase.Description)
			}
			fmt.Printf("Data path:      %s\n", cfg.KnowledgeBase.DataPath)
			fmt.Printf("Index path:     %s\n", cfg.KnowledgeBase.IndexPath)
			fmt.Printf("GPT model:      %s\n", cfg.GPT.Model)
			fmt.Printf("Search k:       %d\n", cfg.KnowledgeBase.SearchK)

			if !loaded {
				fmt.Println("Status:         empty (run 'ragbase rebuild')")
				return nil
			}

			info := kb.Info()
			fmt.Println("Status:         loaded")
			fmt.Printf("Embedding model: %s\n", info.EmbeddingModel)
			fmt.Printf("Chunks:          %d\n", info.TotalChunks)
			fmt.Printf("Tokens:          %d\n", info.TotalTokens)
			fmt.Printf("Sources:         %d\n", info.UniqueSources)
			fmt.Printf("Documents:       %d\n", info.UniqueTitles)
			if info.UniqueHeaders > 0 {
				fmt.Printf("Headers:         %d\n", info.UniqueHeaders)
			}
			return nil
		},
	}
}
