package main

import (
	"fmt"
	"os"

	"github.com/rapidaid-io/rapidaid/cmd/rapidaidctl/app"
)

func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
