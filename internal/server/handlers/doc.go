// Package handlers serves the published documents and renders item
// metadata on demand for serve mode.
package handlers
