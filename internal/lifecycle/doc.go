// Package lifecycle wires vaultwatch's long-running services into a
// suture supervisor tree, isolating the filesystem watcher, the periodic
// scheduler, and the collaborator HTTP API so that a crash in one layer
// restarts independently of the others.
package lifecycle
