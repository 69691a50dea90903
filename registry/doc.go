// Package registry is the single source of truth for tool-server
// identities.
//
// Definitions come from two JSON files: a static catalog of builtin
// servers and a user-writable catalog of custom servers. Builtins are
// read-only; custom entries can be added and deleted at runtime and the
// custom file is rewritten in full on every mutation. A missing static
// file is tolerated (the catalog simply starts empty).
package registry
