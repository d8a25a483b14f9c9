// Package main provides the entry point for the ragbase CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/ragbase/ragbase/cmd/ragbase/cmd"
)

func main() {
	// Missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
