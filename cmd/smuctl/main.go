package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"codeberg.org/mutker/smuctl/internal/cli"
)

func main() {
	// Broker and InfluxDB credentials may live in a .env next to the
	// working directory; absence is fine.
	_ = godotenv.Load()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
