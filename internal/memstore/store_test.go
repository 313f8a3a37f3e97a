package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

var t0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestInsertCustomersIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertCustomers(ctx, []crm.Customer{{ID: "a", Name: "A", Email: "a@example.com", CreatedAt: t0}}))

	err := s.InsertCustomers(ctx, []crm.Customer{
		{ID: "b", Name: "B", Email: "b@example.com", CreatedAt: t0},
		{ID: "c", Name: "C", Email: "a@example.com", CreatedAt: t0},
	})
	require.ErrorIs(t, err, crm.ErrDuplicateEmail)
	require.ErrorIs(t, err, crm.ErrIntegrity)

	_, err = s.GetCustomer(ctx, "b")
	assert.ErrorIs(t, err, crm.ErrNotFound)

	taken, err := s.ExistingEmails(ctx, []string{"a@example.com", "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a@example.com": true}, taken)
}

func TestInsertOrderChecksReferences(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertCustomers(ctx, []crm.Customer{{ID: "c1", Email: "c1@example.com"}}))
	p := crm.Product{ID: "p1", Name: "P", Price: 100}
	require.NoError(t, s.InsertProduct(ctx, p))

	err := s.InsertOrder(ctx, crm.Order{ID: "o1", CustomerID: "ghost", ProductIDs: []string{"p1"}}, []crm.Product{p})
	assert.ErrorIs(t, err, crm.ErrIntegrity)
	err = s.InsertOrder(ctx, crm.Order{ID: "o1", CustomerID: "c1", ProductIDs: []string{"p2"}}, []crm.Product{{ID: "p2"}})
	assert.ErrorIs(t, err, crm.ErrIntegrity)

	ids := []string{"p1"}
	require.NoError(t, s.InsertOrder(ctx, crm.Order{ID: "o1", CustomerID: "c1", ProductIDs: ids, TotalAmount: 100}, []crm.Product{p}))
	ids[0] = "mutated"
	o, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, o.ProductIDs, "store keeps its own copy")
}

func TestDeleteInactiveCustomersCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertCustomers(ctx, []crm.Customer{
		{ID: "old", Email: "old@example.com"},
		{ID: "new", Email: "new@example.com"},
		{ID: "none", Email: "none@example.com"},
	}))
	p := crm.Product{ID: "p", Price: 100}
	require.NoError(t, s.InsertProduct(ctx, p))
	require.NoError(t, s.InsertOrder(ctx, crm.Order{ID: "o-old", CustomerID: "old", ProductIDs: []string{"p"}, OrderDate: t0.AddDate(-2, 0, 0)}, []crm.Product{p}))
	require.NoError(t, s.InsertOrder(ctx, crm.Order{ID: "o-new", CustomerID: "new", ProductIDs: []string{"p"}, OrderDate: t0}, []crm.Product{p}))

	n, err := s.DeleteInactiveCustomers(ctx, t0.AddDate(-1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = s.GetOrder(ctx, "o-old")
	assert.ErrorIs(t, err, crm.ErrNotFound)
	_, err = s.GetOrder(ctx, "o-new")
	assert.NoError(t, err)

	// boundary: an order exactly at the cutoff keeps the customer
	n, err = s.DeleteInactiveCustomers(ctx, t0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRestockBelow(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i, stock := range []int{0, 9, 10, 50} {
		require.NoError(t, s.InsertProduct(ctx, crm.Product{
			ID: string(rune('a' + i)), Price: 100, Stock: stock, CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	at := t0.Add(time.Hour)
	got, err := s.RestockBelow(ctx, 10, 10, at)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 10, got[0].Stock)
	assert.Equal(t, 19, got[1].Stock)
	assert.Equal(t, at, got[1].UpdatedAt)

	ps, err := s.GetProducts(ctx, []string{"c", "missing"})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, 10, ps[0].Stock, "stock equal to threshold is not low")
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.InsertCustomers(ctx, []crm.Customer{{ID: "c", Email: "c@example.com"}}))
	p := crm.Product{ID: "p", Price: 1999}
	require.NoError(t, s.InsertProduct(ctx, p))
	for _, id := range []string{"o1", "o2"} {
		require.NoError(t, s.InsertOrder(ctx, crm.Order{ID: id, CustomerID: "c", ProductIDs: []string{"p"}, TotalAmount: 1999}, []crm.Product{p}))
	}
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, crm.Stats{Customers: 1, Orders: 2, Revenue: 3998}, st)
}
