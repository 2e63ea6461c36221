// Package options centralizes the tunable defaults main binds flags over.
package options

import "time"

// Polling groups the per-source refresh cadences.
type Polling struct {
	Jobs          time.Duration
	Partitions    time.Duration
	GPUAllocation time.Duration
	GPUHours      time.Duration
	Follow        time.Duration
}

// Timeouts groups the command deadlines. Accounting covers sreport, which is
// slower than the live queries.
type Timeouts struct {
	Command    time.Duration
	Accounting time.Duration
}

var DefaultPolling = Polling{
	Jobs:          10 * time.Second,
	Partitions:    10 * time.Second,
	GPUAllocation: 10 * time.Second,
	GPUHours:      60 * time.Second,
	Follow:        2 * time.Second,
}

var DefaultTimeouts = Timeouts{
	Command:    30 * time.Second,
	Accounting: 60 * time.Second,
}
