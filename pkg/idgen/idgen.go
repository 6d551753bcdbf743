package idgen

import "sync/atomic"

// Int64 returns values 1,2,3... Zero is never generated, and values are
// never reused (an int64 does not wrap in any realistic session).
type Int64 struct {
	next atomic.Int64
}

func (u *Int64) Next() int64 {
	return u.next.Add(1)
}

// Reset restarts the sequence at 1
func (u *Int64) Reset() {
	u.next.Store(0)
}
