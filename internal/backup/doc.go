// Package backup implements the agent's core pipeline: deciding which
// files need backing up, sealing and uploading them, restoring them, and
// sweeping old versions according to a retention policy.
//
// The pipeline depends only on the catalog.Catalog, objectstore.Store,
// and crypto.Sealer abstractions; it never touches the filesystem watcher
// or the scheduler directly, keeping those free to own their own
// goroutines without importing this package's internals.
package backup
