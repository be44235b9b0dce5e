package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// FORTDEPS_* overrides may live in a .env file next to the sources.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
