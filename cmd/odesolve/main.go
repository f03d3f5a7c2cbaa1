// Command odesolve solves ordinary differential equations step by step,
// either once from the command line or as an HTTP service.
package main

import (
	"os"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
