// Package app wires stores, services and clients into the dependency
// graph the CLI runs on.
package app
