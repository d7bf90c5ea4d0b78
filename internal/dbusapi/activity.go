package dbusapi

import "sync/atomic"

// ActivityMonitor counts inbound bus requests. The idle detector compares
// the counter between polls; any increase counts as activity.
type ActivityMonitor struct {
	count atomic.Uint64
}

// Touch records one inbound request.
func (m *ActivityMonitor) Touch() {
	m.count.Add(1)
}

// Count returns the number of requests observed so far.
func (m *ActivityMonitor) Count() uint64 {
	return m.count.Load()
}
