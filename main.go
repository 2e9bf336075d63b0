package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/lavudyaraja/nextgenai-sub000/cmd"
)

func main() {
	// A missing .env file is fine; environment variables win either way.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
