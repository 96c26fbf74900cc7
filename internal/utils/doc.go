// Package utils contains the shared HTTP plumbing used by every pipe:
// synchronous JSON POST with typed error mapping, streaming POST that leaves
// the body open for SSE consumption, the SSE line scanner, provider error
// body decoding, and small generic helpers.
package utils
