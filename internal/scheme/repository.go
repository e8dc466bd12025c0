package scheme

import "context"

// ListOptions contains options for listing schemes.
type ListOptions struct {
	LineCode string
	Limit    int
}

// Repository defines the interface for scheme persistence.
type Repository interface {
	// Get retrieves a scheme with its points ordered by position.
	// Returns ErrSchemeNotFound if the scheme doesn't exist.
	Get(ctx context.Context, id string) (*Scheme, error)

	// List retrieves scheme headers without points.
	List(ctx context.Context, opts ListOptions) ([]*Scheme, error)

	// Save creates or replaces a scheme and all of its points.
	Save(ctx context.Context, s *Scheme) error

	// Delete deletes a scheme and its points.
	Delete(ctx context.Context, id string) error
}
