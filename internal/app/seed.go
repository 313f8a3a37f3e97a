package app

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

type SeedResult struct {
	Customers int
	Products  int
	Orders    int
	Skipped   bool
}

func intp(i int) *int { return &i }

var (
	seedCustomers = []crm.CustomerInput{
		{Name: "John Doe", Email: "john.doe@example.com", Phone: "+11234567890"},
		{Name: "Jane Smith", Email: "jane.smith@example.com", Phone: "123-456-7890"},
	}
	seedProducts = []crm.ProductInput{
		{Name: "Laptop", Description: "A powerful laptop.", Price: 120000, Stock: intp(15)},
		{Name: "Mouse", Description: "A wireless mouse.", Price: 2500, Stock: intp(100)},
		{Name: "Keyboard", Description: "A mechanical keyboard.", Price: 7500, Stock: intp(50)},
	}
)

// Seed loads the demo data set through the service, so every row passes
// the same validation as API writes. It does nothing when the first demo
// customer already exists.
func Seed(ctx context.Context, svc *crm.Service) (SeedResult, error) {
	taken, err := svc.Store.ExistingEmails(ctx, []string{seedCustomers[0].Email})
	if err != nil {
		return SeedResult{}, err
	}
	if taken[seedCustomers[0].Email] {
		return SeedResult{Skipped: true}, nil
	}

	bulk, err := svc.BulkCreateCustomers(ctx, seedCustomers)
	if err != nil {
		return SeedResult{}, err
	}
	if len(bulk.Errors) > 0 {
		return SeedResult{}, fmt.Errorf("seed customers: %v", bulk.Errors)
	}
	res := SeedResult{Customers: len(bulk.Customers)}

	products := make([]crm.Product, 0, len(seedProducts))
	for _, in := range seedProducts {
		p, err := svc.CreateProduct(ctx, in)
		if err != nil {
			return res, fmt.Errorf("seed product %s: %w", in.Name, err)
		}
		products = append(products, p)
		res.Products++
	}

	orders := []crm.OrderInput{
		{CustomerID: bulk.Customers[0].ID, ProductIDs: []string{products[0].ID, products[1].ID}},
		{CustomerID: bulk.Customers[1].ID, ProductIDs: []string{products[2].ID}},
	}
	for _, in := range orders {
		if _, err := svc.CreateOrder(ctx, in); err != nil {
			return res, fmt.Errorf("seed order: %w", err)
		}
		res.Orders++
	}
	return res, nil
}
