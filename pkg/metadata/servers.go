package metadata

import "fmt"

// RegisterSS reactivates the existing record with the given id (updating its
// ip and ports), else appends a new one with that id. The
// caller (pkg/nameserver) assigns id via google/uuid on first registration
// and is responsible for recognizing the re-registration case by triple
// lookup before calling this with the existing id.
func (s *Store) RegisterSS(id, ip string, nmPort, clientPort int) (rec *SSRecord, wasInactive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx, ok := s.serverIndex[id]; ok {
		ss := s.servers[idx]
		wasInactive = !ss.Active
		ss.IP = ip
		ss.NMPort = nmPort
		ss.ClientPort = clientPort
		ss.Active = true
		return ss.clone(), wasInactive
	}

	ss := &SSRecord{
		ID:           id,
		IP:           ip,
		NMPort:       nmPort,
		ClientPort:   clientPort,
		Active:       true,
		ClaimedFiles: make(map[string]struct{}),
	}
	s.servers = append(s.servers, ss)
	s.serverIndex[id] = len(s.servers) - 1
	return ss.clone(), false
}

// FindSSByTriple returns the SS record matching (ip, nmPort, clientPort), if
// any — used to recognize a re-registration from the same address.
func (s *Store) FindSSByTriple(ip string, nmPort, clientPort int) (*SSRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ss := range s.servers {
		if ss.IP == ip && ss.NMPort == nmPort && ss.ClientPort == clientPort {
			return ss.clone(), true
		}
	}
	return nil, false
}

// SSByID returns the SS record for id.
func (s *Store) SSByID(id string) (*SSRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.serverIndex[id]
	if !ok {
		return nil, false
	}
	return s.servers[idx].clone(), true
}

// SetSSActive flips the liveness flag, reporting whether it actually changed
// (an edge transition, for heartbeat logging).
func (s *Store) SetSSActive(id string, active bool) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.serverIndex[id]
	if !ok {
		return false, fmt.Errorf("metadata: unknown storage server %q", id)
	}
	ss := s.servers[idx]
	changed = ss.Active != active
	ss.Active = active
	return changed, nil
}

// AllSS returns a snapshot of every known SS record.
func (s *Store) AllSS() []*SSRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SSRecord, len(s.servers))
	for i, ss := range s.servers {
		out[i] = ss.clone()
	}
	return out
}

// ActiveSS returns a snapshot of every SS record currently marked active, in
// registration order (used by Create's round-robin placement).
func (s *Store) ActiveSS() []*SSRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*SSRecord, 0, len(s.servers))
	for _, ss := range s.servers {
		if ss.Active {
			out = append(out, ss.clone())
		}
	}
	return out
}

// ClaimFile records that ssID now claims filename, used to keep each SS's
// claimed-file list consistent with the file arena (I1).
func (s *Store) ClaimFile(ssID, filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.serverIndex[ssID]
	if !ok {
		return
	}
	s.servers[idx].ClaimedFiles[filename] = struct{}{}
}

// UnclaimFile removes filename from every SS's claimed-file list, used by
// Move.
func (s *Store) UnclaimFile(filename string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ss := range s.servers {
		delete(ss.ClaimedFiles, filename)
	}
}
