package domain

import "context"

// Directory stores generated organizations by id.
type Directory interface {
	// Put stores org unless its id is already present. It returns the stored
	// entry and whether this call created it.
	Put(ctx context.Context, org Organization) (Organization, bool)
	Get(ctx context.Context, id string) (Organization, error)
}
