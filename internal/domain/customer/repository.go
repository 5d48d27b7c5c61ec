package customer

import "context"

// Repository defines the interface for customer persistence
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	Get(ctx context.Context, id string) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	List(ctx context.Context) ([]*Customer, error)
	Delete(ctx context.Context, id string) error
}
