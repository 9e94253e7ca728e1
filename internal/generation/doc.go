// Package generation defines the boundary to the external generative
// content provider: the Generator interface, the validated payload types it
// returns, and the domain rules every untrusted payload must pass before use.
package generation
