// Package commands holds the cobra commands of the cachet CLI.
package commands
