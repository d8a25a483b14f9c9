package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRebuildCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the knowledge base from the document directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildAssistant()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result := a.Rebuild(ctx)
			fmt.Println(result.Message)
			if result.Status != "success" {
				return fmt.Errorf("rebuild failed")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Overall rebuild timeout")

	return cmd
}
