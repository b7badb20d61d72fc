// Package wire is the message codec: the canonical fixed-layout header
// and the build/open operations binding that header as associated data.
package wire
