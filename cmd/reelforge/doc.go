// Package main hosts the reelforge CLI entrypoint and command graph.
//
// The Cobra command tree maps terminal invocations onto the render
// pipeline: a full render, each stage on its own, the run ledger, an
// environment health check, and configuration scaffolding. Configuration
// resolution and logger setup live here so subcommands stay declarative
// while the work happens in the internal packages.
package main
