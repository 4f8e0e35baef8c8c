package host

import "time"

// Clock supplies the guest's time sources.
type Clock interface {
	// Nanotime returns a monotonic timestamp in nanoseconds.
	Nanotime() int64
	// Walltime returns the current wall clock time.
	Walltime() (sec int64, nsec int32)
}

// SystemClock reads the host's clocks. Nanotime is anchored at the wall
// clock time the clock was created and advances monotonically from there.
type SystemClock struct {
	startTime time.Time
	origin    int64
}

// NewSystemClock creates a clock anchored at the current time.
func NewSystemClock() *SystemClock {
	now := time.Now()
	return &SystemClock{
		startTime: now,
		origin:    now.UnixNano(),
	}
}

func (c *SystemClock) Nanotime() int64 {
	return c.origin + time.Since(c.startTime).Nanoseconds()
}

func (c *SystemClock) Walltime() (int64, int32) {
	now := time.Now()
	return now.Unix(), int32(now.Nanosecond())
}

// FixedClock is a Clock that only moves when advanced.
type FixedClock struct {
	Mono int64
	Wall time.Time
}

func (c *FixedClock) Nanotime() int64 {
	return c.Mono
}

func (c *FixedClock) Walltime() (int64, int32) {
	return c.Wall.Unix(), int32(c.Wall.Nanosecond())
}

// Advance moves both clocks forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.Mono += int64(d)
	c.Wall = c.Wall.Add(d)
}
