// Package protocol owns the wire contract for the control channel.
//
// Ownership boundary:
// - length-prefixed JSON framing (read, write, drain)
// - request/response envelope model
// - wire error taxonomy and its fatal/recoverable split
package protocol
