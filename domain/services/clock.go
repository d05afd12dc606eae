package services

import "time"

// clock returns the current time; services default to UTC wall time
type clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}
