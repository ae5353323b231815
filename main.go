// file: main.go
// version: 2.0.0
// guid: 3d1f6b7e-94a2-4c0f-8e6a-2b51c9d04e73

package main

import (
	"fmt"
	"os"

	"github.com/jdfalk/libshelf/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
