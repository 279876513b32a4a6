package ui

import "sync/atomic"

type Stats struct {
	TotalChapters  atomic.Int64
	FailedChapters atomic.Int64
	TotalImages    atomic.Int64
	FailedImages   atomic.Int64
	TotalBytes     atomic.Int64
}
