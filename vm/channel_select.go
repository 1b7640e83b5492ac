package vm

import (
	"reflect"
	"time"
)

// ---------------------------------------------------------------------------
// Channel Select: Multi-channel waiting using reflect.Select
// ---------------------------------------------------------------------------

// Select waits for the first of chans to deliver a message and returns
// its index. Closed, drained channels drop out; when all of them have,
// or the timeout expires, index is -1. A negative timeout waits forever
// and a zero timeout only polls.
func Select(chans []*Channel, timeout time.Duration) (int, Message) {
	var timer *time.Timer
	if timeout > 0 {
		timer = time.NewTimer(timeout)
		defer timer.Stop()
	}

	for {
		cases := make([]reflect.SelectCase, 0, len(chans)+1)
		for i, ch := range chans {
			m, ok, drained, wait := ch.poll()
			if ok {
				return i, m
			}
			if drained {
				continue
			}
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(wait),
			})
		}
		if len(cases) == 0 || timeout == 0 {
			return -1, Message{}
		}
		if timer != nil {
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(timer.C),
			})
		}

		chosen, _, _ := reflect.Select(cases)
		if timer != nil && chosen == len(cases)-1 {
			return -1, Message{}
		}
	}
}
