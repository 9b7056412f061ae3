package rack

import "time"

// TrySend sends v to c unless c is full, without ever blocking. Reports
// whether the value was sent. Used by the MIDI drivers, which must not
// stall waiting for the control context.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value arrives from c or t has passed. ok is
// false on timeout or if c was closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
