// Package trust implements the certificate gate: canonical certificate
// encoding, authority signature verification and the store of accepted
// peer certificates.
package trust
