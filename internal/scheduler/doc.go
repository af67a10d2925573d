// Package scheduler implements the periodic driver: queue drains, retention
// sweeps, and catalog snapshots, each on its own ticker, plus a final queue
// drain on shutdown.
package scheduler
