package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newSummarizeCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Summarize a dialog transcript from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				dialog []byte
				err    error
			)
			if len(args) == 1 {
				dialog, err = os.ReadFile(args[0])
			} else {
				dialog, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read dialog: %w", err)
			}

			a, err := buildAssistant()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			fmt.Println(a.Summarize(ctx, string(dialog)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "Overall request timeout")

	return cmd
}
