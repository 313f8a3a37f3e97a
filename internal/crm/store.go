package crm

import (
	"context"
	"time"
)

// Store is the persistence contract. Implementations must make
// InsertCustomers, InsertOrder, RestockBelow and DeleteInactiveCustomers
// atomic: either every row of the call is written or none is.
type Store interface {
	Ping(ctx context.Context) error

	// InsertCustomers writes a batch in one transaction. A unique email
	// violation fails the whole batch with ErrIntegrity.
	InsertCustomers(ctx context.Context, cs []Customer) error
	// ExistingEmails returns the subset of emails already stored
	// (exact, case-sensitive match).
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
	GetCustomer(ctx context.Context, id string) (Customer, error)
	ListCustomers(ctx context.Context, f CustomerFilter, w Window) ([]Customer, error)
	// DeleteInactiveCustomers removes every customer without an order dated
	// at or after cutoff, together with their orders.
	DeleteInactiveCustomers(ctx context.Context, cutoff time.Time) (int, error)

	InsertProduct(ctx context.Context, p Product) error
	// GetProducts returns the products that exist among ids, in no
	// particular order.
	GetProducts(ctx context.Context, ids []string) ([]Product, error)
	ListProducts(ctx context.Context, f ProductFilter, w Window) ([]Product, error)
	// RestockBelow adds amount to the stock of every product whose stock is
	// strictly below threshold and returns the updated rows.
	RestockBelow(ctx context.Context, threshold, amount int, at time.Time) ([]Product, error)

	// InsertOrder writes the order and its product links; products carries
	// the resolved rows so the unit price is captured with the link.
	InsertOrder(ctx context.Context, o Order, products []Product) error
	GetOrder(ctx context.Context, id string) (Order, error)
	ListOrders(ctx context.Context, f OrderFilter, w Window) ([]Order, error)

	Stats(ctx context.Context) (Stats, error)
}
