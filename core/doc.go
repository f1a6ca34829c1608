// Package core holds the types shared by every engine: the error taxonomy
// and the per-run lifecycle state.
package core
