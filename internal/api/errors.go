package api

import "errors"

var (
	ErrRestoreNotFound   = errors.New("restore job not found")
	ErrRestoreInProgress = errors.New("a restore is already running")
)
