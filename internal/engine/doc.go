// Package engine defines the uniform handler contract that all computation
// engines implement, the metadata identifying each implementation, and the
// registry of engines available for local, in-process execution.
package engine
