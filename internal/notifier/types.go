package notifier

import "time"

const (
	DefaultRatePerSec  = 1.0
	DefaultSendTimeout = 10 * time.Second
)

// Config controls delivery pacing.
type Config struct {
	RatePerSec     float64
	SendTimeout    time.Duration
	ParseMode      string
	DisablePreview bool
}

// Result is the outcome of one chunk.
type Result struct {
	Index     int
	OK        bool
	MessageID int
	Err       error
}

// Summary counts successful and failed chunks.
func Summary(rs []Result) (sent, failed int) {
	for _, r := range rs {
		if r.OK {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
