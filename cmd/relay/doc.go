// Command relay runs the store-and-forward relay daemon. It holds only
// certificate records and ciphertext envelopes.
package main
