// Command isoctl generates, validates and hashes ISO 20022 messages offline,
// using the same codec the adapter uses on the wire.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
