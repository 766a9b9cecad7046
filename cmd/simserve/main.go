package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/simserve/simserve/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "simserve: %v\n", err)
		os.Exit(1)
	}
}
