// Command crudform renders, fills and serves CRUD forms loaded from
// definition files.
package main

import (
	"fmt"
	"os"

	"github.com/goliatone/go-crudform/internal/config"
)

func main() {
	cmd := newRootCommand(config.FromEnv())
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
