// Package session owns the per-peer Double Ratchet state machine:
// chain advancement, the two-step DH ratchet on a new remote key, the
// bounded skipped-key cache for out-of-order delivery, and the staged
// decrypt-then-commit receive discipline.
package session
