package metadata

import "github.com/marmos91/dfs/pkg/ferrors"

// AddACL grants username the given access level on filename. Owner-only;
// callers enforce that separately. Rejects granting to the owner (I2) and
// enforces the configured ACL capacity.
func (s *Store) AddACL(filename, username string, access AccessLevel) error {
	return s.UpdateFile(filename, func(f *FileRecord) error {
		if username == f.Owner {
			return ferrors.InvalidCommandf("owner already has implicit write access")
		}
		for i, e := range f.ACL {
			if e.Username == username {
				f.ACL[i].Access = access
				return nil
			}
		}
		if len(f.ACL) >= s.maxACLEntries {
			return ferrors.InvalidCommandf("acl capacity exceeded")
		}
		f.ACL = append(f.ACL, ACLEntry{Username: username, Access: access})
		removePendingLocked(f, username)
		return nil
	})
}

// RemoveACL revokes username's access to filename.
func (s *Store) RemoveACL(filename, username string) error {
	return s.UpdateFile(filename, func(f *FileRecord) error {
		for i, e := range f.ACL {
			if e.Username == username {
				f.ACL = append(f.ACL[:i], f.ACL[i+1:]...)
				return nil
			}
		}
		return ferrors.NotFoundf(username)
	})
}

// AddPendingRequest records username's request for the given access level.
// No-op error if the user already holds that access level or better (I4).
func (s *Store) AddPendingRequest(filename, username string, requested AccessLevel) error {
	return s.UpdateFile(filename, func(f *FileRecord) error {
		if f.AccessOf(username) >= requested {
			return ferrors.InvalidCommandf("user already has sufficient access")
		}
		for i, p := range f.PendingRequests {
			if p.Username == username {
				f.PendingRequests[i].Requested = requested
				return nil
			}
		}
		f.PendingRequests = append(f.PendingRequests, PendingRequest{Username: username, Requested: requested})
		return nil
	})
}

// ApprovePendingRequest grants the requested access and clears the pending
// entry.
func (s *Store) ApprovePendingRequest(filename, username string) error {
	return s.UpdateFile(filename, func(f *FileRecord) error {
		idx := -1
		for i, p := range f.PendingRequests {
			if p.Username == username {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ferrors.NotFoundf(username)
		}
		requested := f.PendingRequests[idx].Requested
		f.PendingRequests = append(f.PendingRequests[:idx], f.PendingRequests[idx+1:]...)
		for i, e := range f.ACL {
			if e.Username == username {
				f.ACL[i].Access = requested
				return nil
			}
		}
		f.ACL = append(f.ACL, ACLEntry{Username: username, Access: requested})
		return nil
	})
}

// DenyPendingRequest clears username's pending request without granting
// access.
func (s *Store) DenyPendingRequest(filename, username string) error {
	return s.UpdateFile(filename, func(f *FileRecord) error {
		for i, p := range f.PendingRequests {
			if p.Username == username {
				f.PendingRequests = append(f.PendingRequests[:i], f.PendingRequests[i+1:]...)
				return nil
			}
		}
		return ferrors.NotFoundf(username)
	})
}

func removePendingLocked(f *FileRecord, username string) {
	for i, p := range f.PendingRequests {
		if p.Username == username {
			f.PendingRequests = append(f.PendingRequests[:i], f.PendingRequests[i+1:]...)
			return
		}
	}
}
