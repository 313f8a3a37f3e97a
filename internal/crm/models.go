package crm

import "time"

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       Money     `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Order links one customer to a set of products. TotalAmount is the sum of
// the product prices when the order was placed and is never recomputed.
type Order struct {
	ID          string    `json:"id"`
	CustomerID  string    `json:"customer_id"`
	ProductIDs  []string  `json:"product_ids"`
	TotalAmount Money     `json:"total_cents"`
	OrderDate   time.Time `json:"order_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// Stats is a single consistent read of the reporting aggregates.
type Stats struct {
	Customers int
	Orders    int
	Revenue   Money
}

type BulkResult struct {
	Customers []Customer
	Errors    []string
}

type RestockResult struct {
	Products []Product
	Message  string
}

const (
	// DefaultLowStockThreshold is used when the caller does not pass one,
	// and by the lowStock product filter.
	DefaultLowStockThreshold = 10
	DefaultRestockAmount     = 10

	Greeting = "Hello from CRM GraphQL API!"
)
