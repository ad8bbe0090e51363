package backend

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Record is a backend-owned record with a caller-assigned identity.
type Record interface {
	RecordID() string
	Validate() error
}

// Collection is the uniform CRUD gateway to one auxiliary collection.
// It keeps no state; callers decide how to resynchronize after mutations.
type Collection[R Record] struct {
	client *Client
	name   string
}

// NewCollection returns the collection mounted at /name on the backend.
func NewCollection[R Record](client *Client, name string) *Collection[R] {
	return &Collection[R]{client: client, name: name}
}

// Name returns the collection name.
func (c *Collection[R]) Name() string {
	return c.name
}

// List fetches the current snapshot of the collection.
func (c *Collection[R]) List(ctx context.Context) ([]R, error) {
	var records []R
	if err := c.client.do(ctx, "list "+c.name, http.MethodGet, "/"+c.name, nil, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []R{}
	}
	return records, nil
}

// Create stores a new record. The id must already be assigned.
func (c *Collection[R]) Create(ctx context.Context, record R) error {
	if err := validate(record); err != nil {
		return err
	}
	return c.client.do(ctx, "create "+c.name, http.MethodPost, "/"+c.name, record, nil)
}

// Update replaces the record stored under id.
func (c *Collection[R]) Update(ctx context.Context, id string, record R) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Reason: "must not be blank"}
	}
	if err := record.Validate(); err != nil {
		return err
	}
	return c.client.do(ctx, "update "+c.name, http.MethodPut, c.itemPath(id), record, nil)
}

// Delete removes the record stored under id. Deleting an unknown id is not
// guaranteed to fail.
func (c *Collection[R]) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Field: "id", Reason: "must not be blank"}
	}
	return c.client.do(ctx, "delete "+c.name, http.MethodDelete, c.itemPath(id), nil, nil)
}

func (c *Collection[R]) itemPath(id string) string {
	return "/" + c.name + "/" + url.PathEscape(id)
}

func validate[R Record](record R) error {
	if strings.TrimSpace(record.RecordID()) == "" {
		return &ValidationError{Field: "id", Reason: "must be assigned before create"}
	}
	return record.Validate()
}
