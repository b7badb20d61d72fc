// Package relay is the HTTP client for the store-and-forward relay:
// certificate publication and lookup, plus envelope send, fetch and
// acknowledgement. The relay never sees plaintext or keys.
package relay
