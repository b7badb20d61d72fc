// Package domain holds the shared types of the messaging core: key
// material, certificates, wire headers and the sentinel errors every
// layer reports through.
package domain
