package nameserver

import (
	"github.com/marmos91/dfs/pkg/ferrors"
	"github.com/marmos91/dfs/pkg/metadata"
)

// AddAccess grants username the given access level on filename. Owner-only
// (§4.1 Addaccess/Remaccess).
func (n *NameServer) AddAccess(filename, owner, username string, access metadata.AccessLevel) error {
	if err := n.requireOwner(filename, owner); err != nil {
		return err
	}
	err := n.store.AddACL(filename, username, access)
	if err == nil {
		n.persist()
	}
	return err
}

// RemoveAccess revokes username's access to filename. Owner-only.
func (n *NameServer) RemoveAccess(filename, owner, username string) error {
	if err := n.requireOwner(filename, owner); err != nil {
		return err
	}
	err := n.store.RemoveACL(filename, username)
	if err == nil {
		n.persist()
	}
	return err
}

// RequestAccess records username's request for a higher access level on
// filename (§4.1 Reqaccess).
func (n *NameServer) RequestAccess(filename, username string, requested metadata.AccessLevel) error {
	if _, ok := n.store.GetFile(filename, ""); !ok {
		return ferrors.NotFoundf(filename)
	}
	err := n.store.AddPendingRequest(filename, username, requested)
	if err == nil {
		n.persist()
	}
	return err
}

// ViewRequests returns the pending access requests on filename. Owner-only.
func (n *NameServer) ViewRequests(filename, owner string) ([]metadata.PendingRequest, error) {
	if err := n.requireOwner(filename, owner); err != nil {
		return nil, err
	}
	f, _ := n.store.GetFile(filename, "")
	return f.PendingRequests, nil
}

// Approve grants username's pending request on filename. Owner-only.
func (n *NameServer) Approve(filename, owner, username string) error {
	if err := n.requireOwner(filename, owner); err != nil {
		return err
	}
	err := n.store.ApprovePendingRequest(filename, username)
	if err == nil {
		n.persist()
	}
	return err
}

// Deny clears username's pending request on filename without granting
// access. Owner-only.
func (n *NameServer) Deny(filename, owner, username string) error {
	if err := n.requireOwner(filename, owner); err != nil {
		return err
	}
	err := n.store.DenyPendingRequest(filename, username)
	if err == nil {
		n.persist()
	}
	return err
}

func (n *NameServer) requireOwner(filename, username string) error {
	f, ok := n.store.GetFile(filename, "")
	if !ok {
		return ferrors.NotFoundf(filename)
	}
	if f.Owner != username {
		return ferrors.NotOwnerf(filename)
	}
	return nil
}
