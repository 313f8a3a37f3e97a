package crm_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

func seedCustomers(t *testing.T, f *fixture, names ...string) []crm.Customer {
	t.Helper()
	out := make([]crm.Customer, 0, len(names))
	for _, n := range names {
		email := strings.ReplaceAll(strings.ToLower(n), " ", ".") + "@example.com"
		c, err := f.svc.CreateCustomer(context.Background(), crm.CustomerInput{Name: n, Email: email})
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func names(cs []crm.Customer) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.Name)
	}
	return out
}

func TestCustomersPagesWithoutGapsOrDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedCustomers(t, f, "Eve", "Bob", "Dave", "Alice", "Carol")

	var (
		seen  []string
		after string
		pages int
	)
	for {
		page, err := f.svc.Customers(ctx, crm.CustomerFilter{}, crm.PageArgs{First: intp(2), After: after})
		require.NoError(t, err)
		pages++
		assert.Equal(t, after != "", page.HasPreviousPage)
		seen = append(seen, names(page.Nodes())...)
		if !page.HasNextPage {
			break
		}
		after = page.EndCursor()
		require.NotEmpty(t, after)
	}
	assert.Equal(t, 3, pages)
	// default order is creation time
	assert.Equal(t, []string{"Eve", "Bob", "Dave", "Alice", "Carol"}, seen)
}

func TestCustomersOrderBy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedCustomers(t, f, "Eve", "Bob", "Dave", "Alice", "Carol")

	page, err := f.svc.Customers(ctx, crm.CustomerFilter{}, crm.PageArgs{OrderBy: "-name"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Eve", "Dave", "Carol", "Bob", "Alice"}, names(page.Nodes()))
	assert.False(t, page.HasNextPage)

	// descending keyset continues from the cursor
	first, err := f.svc.Customers(ctx, crm.CustomerFilter{}, crm.PageArgs{First: intp(2), OrderBy: "-name"})
	require.NoError(t, err)
	rest, err := f.svc.Customers(ctx, crm.CustomerFilter{}, crm.PageArgs{First: intp(10), OrderBy: "-name", After: first.EndCursor()})
	require.NoError(t, err)
	assert.Equal(t, []string{"Carol", "Bob", "Alice"}, names(rest.Nodes()))

	for _, spelling := range []string{"created_at", "createdAt", "-created_at"} {
		_, err := f.svc.Customers(ctx, crm.CustomerFilter{}, crm.PageArgs{OrderBy: spelling})
		assert.NoError(t, err, spelling)
	}
}

func TestPageArgsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedCustomers(t, f, "Alice", "Bob")

	page, err := f.svc.Customers(ctx, crm.CustomerFilter{}, crm.PageArgs{First: intp(1)})
	require.NoError(t, err)
	cursor := page.EndCursor()

	cases := []struct {
		name  string
		args  crm.PageArgs
		field string
	}{
		{"first zero", crm.PageArgs{First: intp(0)}, "first"},
		{"first too large", crm.PageArgs{First: intp(crm.MaxPageSize + 1)}, "first"},
		{"unknown field", crm.PageArgs{OrderBy: "price"}, "orderBy"},
		{"garbage cursor", crm.PageArgs{After: "not-a-cursor"}, "after"},
		{"cursor from other ordering", crm.PageArgs{After: cursor, OrderBy: "name"}, "after"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Customers(ctx, crm.CustomerFilter{}, tc.args)
			fes, ok := crm.FieldErrors(err)
			require.True(t, ok, "want validation error, got %v", err)
			assert.Equal(t, tc.field, fes[0].Field)
		})
	}
}

func TestCustomerFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedCustomers(t, f, "John Doe", "Jane Smith", "Johnny Cash", "Elton John")

	page, err := f.svc.Customers(ctx, crm.CustomerFilter{Name: "john"}, crm.PageArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"John Doe", "Johnny Cash", "Elton John"}, names(page.Nodes()))

	// filters narrow before paging
	page, err = f.svc.Customers(ctx, crm.CustomerFilter{Name: "john"}, crm.PageArgs{First: intp(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"John Doe"}, names(page.Nodes()))
	assert.True(t, page.HasNextPage)

	page, err = f.svc.Customers(ctx, crm.CustomerFilter{Email: "ELTON.J"}, crm.PageArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Elton John"}, names(page.Nodes()))

	// two clock ticks per customer: created, then event
	from := epoch.Add(3 * time.Second)
	to := epoch.Add(5 * time.Second)
	page, err = f.svc.Customers(ctx, crm.CustomerFilter{CreatedAtGte: &from, CreatedAtLte: &to}, crm.PageArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane Smith", "Johnny Cash"}, names(page.Nodes()))
}

func TestCustomerPhonePrefix(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.svc.CreateCustomer(ctx, crm.CustomerInput{Name: "US", Email: "us@example.com", Phone: "+11234567890"})
	require.NoError(t, err)
	_, err = f.svc.CreateCustomer(ctx, crm.CustomerInput{Name: "UK", Email: "uk@example.com", Phone: "+447911123456"})
	require.NoError(t, err)

	page, err := f.svc.Customers(ctx, crm.CustomerFilter{PhonePrefix: "+1"}, crm.PageArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, names(page.Nodes()))
}

func TestProductFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, in := range []crm.ProductInput{
		{Name: "Laptop", Price: 99999, Stock: intp(3)},
		{Name: "Mouse", Price: 2550, Stock: intp(100)},
		{Name: "Keyboard", Price: 7500, Stock: intp(9)},
		{Name: "Laptop Stand", Price: 4000, Stock: intp(12)},
	} {
		_, err := f.svc.CreateProduct(ctx, in)
		require.NoError(t, err)
	}
	productNames := func(p crm.Page[crm.Product]) []string {
		var out []string
		for _, n := range p.Nodes() {
			out = append(out, n.Name)
		}
		return out
	}

	page, err := f.svc.Products(ctx, crm.ProductFilter{LowStock: true}, crm.PageArgs{OrderBy: "stock"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Laptop", "Keyboard"}, productNames(page))

	lo, hi := crm.Money(4000), crm.Money(10000)
	page, err = f.svc.Products(ctx, crm.ProductFilter{PriceGte: &lo, PriceLte: &hi}, crm.PageArgs{OrderBy: "-price"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Keyboard", "Laptop Stand"}, productNames(page))

	page, err = f.svc.Products(ctx, crm.ProductFilter{Name: "LAPTOP", StockGte: intp(10)}, crm.PageArgs{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Laptop Stand"}, productNames(page))

	// int keyset: walk by price one at a time
	var walked []string
	args := crm.PageArgs{First: intp(1), OrderBy: "price"}
	for {
		page, err := f.svc.Products(ctx, crm.ProductFilter{}, args)
		require.NoError(t, err)
		walked = append(walked, productNames(page)...)
		if !page.HasNextPage {
			break
		}
		args.After = page.EndCursor()
	}
	assert.Equal(t, []string{"Mouse", "Laptop Stand", "Keyboard", "Laptop"}, walked)
}

func TestOrderRelationFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cs := seedCustomers(t, f, "John Doe", "Jane Smith")
	laptop, err := f.svc.CreateProduct(ctx, crm.ProductInput{Name: "Laptop", Price: 120000})
	require.NoError(t, err)
	mouse, err := f.svc.CreateProduct(ctx, crm.ProductInput{Name: "Mouse", Price: 2500})
	require.NoError(t, err)

	o1, err := f.svc.CreateOrder(ctx, crm.OrderInput{CustomerID: cs[0].ID, ProductIDs: []string{laptop.ID, mouse.ID}})
	require.NoError(t, err)
	o2, err := f.svc.CreateOrder(ctx, crm.OrderInput{CustomerID: cs[1].ID, ProductIDs: []string{mouse.ID}})
	require.NoError(t, err)

	check := func(filter crm.OrderFilter, orderBy string, want ...string) {
		t.Helper()
		page, err := f.svc.Orders(ctx, filter, crm.PageArgs{OrderBy: orderBy})
		require.NoError(t, err)
		var got []string
		for _, o := range page.Nodes() {
			got = append(got, o.ID)
		}
		assert.Equal(t, want, got)
	}

	check(crm.OrderFilter{CustomerName: "john"}, "", o1.ID)
	check(crm.OrderFilter{ProductName: "mou"}, "", o1.ID, o2.ID)
	check(crm.OrderFilter{ProductID: laptop.ID}, "", o1.ID)
	check(crm.OrderFilter{CustomerID: cs[1].ID}, "", o2.ID)
	floor := crm.Money(100000)
	check(crm.OrderFilter{TotalGte: &floor}, "", o1.ID)
	check(crm.OrderFilter{}, "-totalAmount", o1.ID, o2.ID)
	check(crm.OrderFilter{}, "totalAmount", o2.ID, o1.ID)
}
