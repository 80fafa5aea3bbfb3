// Command commodex computes the commodity basket index from stored inputs.
//
// Usage:
//
//	commodex compute --from 2024-01-02 --to 2024-06-28 --mode both
//	commodex import inputs.csv
//	commodex demo
//	commodex catalog
package main

import (
	"os"

	"commodex/cmd/commodex/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
