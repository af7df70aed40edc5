package app

// LockCount reports how many per-session locks are currently tracked.
func (s *DrawService) LockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
