package metadata

// RegisterClient registers or refreshes a client session. Idempotent by
// username: re-registration updates the endpoint and marks the client active
// rather than creating a duplicate (§3).
func (s *Store) RegisterClient(username, ip string, port int) *ClientRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clients[username]
	if !ok {
		c = &ClientRecord{Username: username}
		s.clients[username] = c
	}
	c.IP = ip
	c.Port = port
	c.Active = true
	cp := *c
	return &cp
}

// SetClientActive marks username's session active/inactive, e.g. on
// connection close.
func (s *Store) SetClientActive(username string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.clients[username]; ok {
		c.Active = active
	}
}

// ClientByUsername returns the client session record for username.
func (s *Store) ClientByUsername(username string) (*ClientRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[username]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}
