package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%john%`, likePattern("john"))
	assert.Equal(t, `%50\%\_off\\%`, likePattern(`50%_off\`))
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key", Detail: "Key (email) exists"}
	assert.ErrorIs(t, mapErr(dup), crm.ErrDuplicateEmail)

	fk := &pgconn.PgError{Code: "23503", Message: "violates foreign key"}
	assert.ErrorIs(t, mapErr(fk), crm.ErrIntegrity)

	serial := &pgconn.PgError{Code: "40001", Message: "could not serialize"}
	assert.ErrorIs(t, mapErr(serial), crm.ErrIntegrity)

	other := errors.New("boom")
	assert.Equal(t, other, mapErr(other))
}

// openTestStore connects to CRM_TEST_POSTGRES_DSN and empties every table.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("CRM_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CRM_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, Migrate(ctx, db))
	_, err = db.Exec(ctx, `TRUNCATE order_products, orders, products, customers`)
	require.NoError(t, err)
	return &Store{DB: db}
}

func newTestService(store crm.Store) *crm.Service {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return &crm.Service{
		Store: store,
		Now: func() time.Time {
			n++
			return t0.Add(time.Duration(n) * time.Second)
		},
	}
}

func TestStoreCustomers(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	svc := newTestService(store)

	for i := 0; i < 5; i++ {
		_, err := svc.CreateCustomer(ctx, crm.CustomerInput{
			Name:  fmt.Sprintf("Customer %d", i),
			Email: fmt.Sprintf("c%d@example.com", i),
		})
		require.NoError(t, err)
	}

	batch := []crm.Customer{
		{ID: "dup-1", Name: "A", Email: "new@example.com", CreatedAt: time.Now().UTC()},
		{ID: "dup-2", Name: "B", Email: "c0@example.com", CreatedAt: time.Now().UTC()},
	}
	require.ErrorIs(t, store.InsertCustomers(ctx, batch), crm.ErrDuplicateEmail)
	_, err := store.GetCustomer(ctx, "dup-1")
	require.ErrorIs(t, err, crm.ErrNotFound, "failed batch writes nothing")

	two := 2
	seen := map[string]bool{}
	args := crm.PageArgs{First: &two, OrderBy: "-createdAt"}
	for {
		page, err := svc.Customers(ctx, crm.CustomerFilter{}, args)
		require.NoError(t, err)
		for _, e := range page.Edges {
			assert.False(t, seen[e.Node.ID], "duplicate %s", e.Node.ID)
			seen[e.Node.ID] = true
		}
		if !page.HasNextPage {
			break
		}
		args.After = page.EndCursor()
	}
	assert.Len(t, seen, 5)

	page, err := svc.Customers(ctx, crm.CustomerFilter{Email: "C3@"}, crm.PageArgs{})
	require.NoError(t, err)
	require.Len(t, page.Edges, 1)
	assert.Equal(t, "Customer 3", page.Edges[0].Node.Name)
}

func TestStoreOrdersAndPurge(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	svc := newTestService(store)

	active, err := svc.CreateCustomer(ctx, crm.CustomerInput{Name: "Active", Email: "active@example.com"})
	require.NoError(t, err)
	idle, err := svc.CreateCustomer(ctx, crm.CustomerInput{Name: "Idle", Email: "idle@example.com"})
	require.NoError(t, err)

	stock := 3
	laptop, err := svc.CreateProduct(ctx, crm.ProductInput{Name: "Laptop", Price: 99999, Stock: &stock})
	require.NoError(t, err)
	mouse, err := svc.CreateProduct(ctx, crm.ProductInput{Name: "Mouse", Price: 2550, Stock: &stock})
	require.NoError(t, err)

	o, err := svc.CreateOrder(ctx, crm.OrderInput{CustomerID: active.ID, ProductIDs: []string{laptop.ID, mouse.ID, laptop.ID}})
	require.NoError(t, err)
	assert.Equal(t, crm.Money(102549), o.TotalAmount)

	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateOrder(ctx, crm.OrderInput{CustomerID: idle.ID, ProductIDs: []string{mouse.ID}, OrderDate: &old})
	require.NoError(t, err)

	got, err := svc.Order(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{laptop.ID, mouse.ID}, got.ProductIDs)
	assert.True(t, got.OrderDate.Equal(o.OrderDate))

	page, err := svc.Orders(ctx, crm.OrderFilter{ProductName: "lap"}, crm.PageArgs{})
	require.NoError(t, err)
	require.Len(t, page.Edges, 1)
	assert.Equal(t, o.ID, page.Edges[0].Node.ID)

	restocked, err := svc.UpdateLowStockProducts(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, restocked.Products, 2)

	n, err := svc.PurgeInactiveCustomers(ctx, 365*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, crm.Stats{Customers: 1, Orders: 1, Revenue: 102549}, stats)
}
