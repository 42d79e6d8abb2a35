package client

import "github.com/marmos91/dfs/pkg/wire"

// View returns the NS's formatted file listing for the given flags.
func (c *Client) View(flags uint16) (string, error) {
	resp, err := c.ns(&wire.Record{Op: wire.OpView, Flags: flags})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}

// Create asks the NS to create filename, choosing and confirming with a
// primary SS on the NS's side.
func (c *Client) Create(filename string) error {
	resp, err := c.ns(&wire.Record{Op: wire.OpCreate, Filename: filename})
	if err != nil {
		return err
	}
	return resp.Err()
}

// Delete asks the NS to delete filename (owner-only).
func (c *Client) Delete(filename string) error {
	resp, err := c.ns(&wire.Record{Op: wire.OpDelete, Filename: filename})
	if err != nil {
		return err
	}
	return resp.Err()
}

// Info returns the NS's formatted metadata for filename.
func (c *Client) Info(filename string) (string, error) {
	resp, err := c.ns(&wire.Record{Op: wire.OpInfo, Filename: filename})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}

// List returns the owner and ACL entries for filename.
func (c *Client) List(filename string) (string, error) {
	resp, err := c.ns(&wire.Record{Op: wire.OpList, Filename: filename})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}

// Recents returns the 5 most recently accessed files the user may read.
func (c *Client) Recents() (string, error) {
	resp, err := c.ns(&wire.Record{Op: wire.OpRecents})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}

// AddAccess grants username the given access level on filename (owner-only).
// write selects WRITE over READ.
func (c *Client) AddAccess(filename, username string, write bool) error {
	req := &wire.Record{Op: wire.OpAddAccess, Filename: filename, Data: username}
	if write {
		req.Flags |= wire.FlagAll
	}
	resp, err := c.ns(req)
	if err != nil {
		return err
	}
	return resp.Err()
}

// RemoveAccess revokes username's access to filename (owner-only).
func (c *Client) RemoveAccess(filename, username string) error {
	resp, err := c.ns(&wire.Record{Op: wire.OpRemAccess, Filename: filename, Data: username})
	if err != nil {
		return err
	}
	return resp.Err()
}

// RequestAccess asks the owner of filename to grant the caller access. write
// selects WRITE over READ.
func (c *Client) RequestAccess(filename string, write bool) error {
	req := &wire.Record{Op: wire.OpReqAccess, Filename: filename}
	if write {
		req.Flags |= wire.FlagAll
	}
	resp, err := c.ns(req)
	if err != nil {
		return err
	}
	return resp.Err()
}

// ViewRequests returns the pending access requests on filename (owner-only).
func (c *Client) ViewRequests(filename string) (string, error) {
	resp, err := c.ns(&wire.Record{Op: wire.OpViewRequests, Filename: filename})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}

// Approve grants username's pending request on filename (owner-only).
func (c *Client) Approve(filename, username string) error {
	resp, err := c.ns(&wire.Record{Op: wire.OpApprove, Filename: filename, Data: username})
	if err != nil {
		return err
	}
	return resp.Err()
}

// Deny clears username's pending request on filename without granting
// access (owner-only).
func (c *Client) Deny(filename, username string) error {
	resp, err := c.ns(&wire.Record{Op: wire.OpDeny, Filename: filename, Data: username})
	if err != nil {
		return err
	}
	return resp.Err()
}

// CreateFolder broadcasts folder creation to every active SS.
func (c *Client) CreateFolder(path string) error {
	resp, err := c.ns(&wire.Record{Op: wire.OpCreateFolder, Filename: path})
	if err != nil {
		return err
	}
	return resp.Err()
}

// Move renames filename into folder (owner-only).
func (c *Client) Move(filename, folder string) error {
	resp, err := c.ns(&wire.Record{Op: wire.OpMove, Filename: filename, Data: folder})
	if err != nil {
		return err
	}
	return resp.Err()
}

// ViewFolder lists the files under folder the caller may read.
func (c *Client) ViewFolder(folder string) (string, error) {
	resp, err := c.ns(&wire.Record{Op: wire.OpViewFolder, Filename: folder})
	if err != nil {
		return "", err
	}
	return resp.Data, resp.Err()
}
