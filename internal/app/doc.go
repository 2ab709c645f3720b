// Package app contains the core application logic. It wires the command
// registry, the processor and the optional datastores, health server and
// progress publisher together, and runs one script or a directory of
// scripts, decoupled from any specific entrypoint like a CLI.
package app
