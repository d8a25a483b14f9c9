package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		temperature float32
		timeout     time.Duration
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question over the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildAssistant()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if err := a.BuildOrLoad(ctx); err != nil {
				return err
			}

			question := strings.Join(args, " ")

			var temp *float32
			if cmd.Flags().Changed("temperature") {
				temp = &temperature
			}

			answer, err := a.Ask(ctx, question, temp)
			if err != nil {
				return err
			}

			fmt.Println(answer.Answer)

			if showSources && len(answer.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, s := range answer.Sources {
					fmt.Printf("  %s (relevance %.3f)\n", s.Source, s.RelevanceScore)
				}
			}
			if answer.TokensUsed > 0 {
				fmt.Printf("\nTokens used: %d\n", answer.TokensUsed)
			}
			return nil
		},
	}

	cmd.Flags().Float32VarP(&temperature, "temperature", "t", 0, "Override the configured sampling temperature")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall request timeout")
	cmd.Flags().BoolVar(&showSources, "sources", true, "Print the source fragments used")

	return cmd
}
