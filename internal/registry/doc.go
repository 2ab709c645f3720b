// Package registry provides the central "glue" for the command system.
//
// The Registry maps the command names used in scripts (e.g., "FillConstant")
// to the Go factories that build them. Each command package exposes a Module
// that registers its factories; the application registers every compiled-in
// module at startup.
//
// Historical script corpora spell some commands in lower camel case
// ("fillConstant"). Those spellings are registered as deprecated aliases of
// the canonical command, so there is exactly one implementation per command.
package registry
