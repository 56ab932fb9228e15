// Package notifier delivers composed message chunks to a chat.
//
// Delivery is sequential and best-effort: chunk N+1 is attempted only after
// chunk N's attempt has completed, a failed chunk is logged and does not stop
// the rest, and nothing is retried. Every attempt is throttled by a token
// bucket and bounded by a per-send timeout.
package notifier
