package loadcheck

import "time"

// Defaults for a Config left partly empty.
const (
	DefaultStudents      = 500
	DefaultGhostEvery    = 7
	DefaultBlankEvery    = 11
	DefaultRepeatEvery   = 13
	DefaultTopN          = 10
	DefaultTimeout       = 30 * time.Second
	DefaultWaitTimeout   = 5 * time.Minute
	DefaultPollInterval  = 250 * time.Millisecond
	PercentageMultiplier = 100
)
