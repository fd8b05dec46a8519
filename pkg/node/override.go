package node

import "sync"

type overrideKind int

const (
	overrideNone overrideKind = iota
	overrideText
	overrideBitmap
)

// overrideState holds a temporary display takeover (text or raw bitmap)
// pushed from the bus. It has its own mutex so display traffic never
// contends with the motor command path. Expiry is lazy: the render loop
// observes it via Snapshot, which clears an expired override under the
// same lock so a concurrent Set can never be clobbered by a stale
// expiration.
type overrideState struct {
	mu        sync.Mutex
	kind      overrideKind
	text      string
	bitmap    []byte
	expiresMS int64
}

func (o *overrideState) SetText(text string, nowMS, ttlMS int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kind = overrideText
	o.text = text
	o.bitmap = nil
	o.expiresMS = nowMS + ttlMS
}

func (o *overrideState) SetBitmap(buf []byte, nowMS, ttlMS int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.kind = overrideBitmap
	o.bitmap = append(o.bitmap[:0], buf...)
	o.text = ""
	o.expiresMS = nowMS + ttlMS
}

// Snapshot returns the active override, expiring it if its window has
// passed. The bitmap is a reference valid until the next SetBitmap; the
// single render goroutine consumes it before then.
func (o *overrideState) Snapshot(nowMS int64) (overrideKind, string, []byte) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.kind == overrideNone {
		return overrideNone, "", nil
	}
	if nowMS >= o.expiresMS {
		o.kind = overrideNone
		o.text = ""
		o.bitmap = nil
		return overrideNone, "", nil
	}
	return o.kind, o.text, o.bitmap
}
