package gateway

// Subscribers reports how many subscriptions m still tracks.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}
