// Package main is the single-binary entrypoint for battguard.
package main

import "github.com/tutu-network/battguard/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
