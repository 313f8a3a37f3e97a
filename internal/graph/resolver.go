package graph

import (
	"context"
	"errors"
	"log/slog"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

var (
	errInternal    = errors.New("internal error")
	errUnavailable = errors.New("service unavailable")
)

// Resolver is the root of both Query and Mutation.
type Resolver struct {
	Svc *crm.Service
	Log *slog.Logger
}

func (r *Resolver) log() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}

// fail maps a service error to what the client sees. Validation errors keep
// their message; infrastructure errors are logged and replaced.
func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	if _, ok := crm.FieldErrors(err); ok {
		return err
	}
	r.log().ErrorContext(ctx, "graphql resolver failed", "op", op, "trace_id", crm.TraceID(ctx), "error", err)
	if errors.Is(err, crm.ErrUnavailable) {
		return errUnavailable
	}
	return errInternal
}

func (r *Resolver) Hello(ctx context.Context) (string, error) {
	s, err := r.Svc.Hello(ctx)
	if err != nil {
		return "", r.fail(ctx, "hello", err)
	}
	return s, nil
}

func (r *Resolver) Customer(ctx context.Context, args struct{ ID graphql.ID }) (*customerResolver, error) {
	c, err := r.Svc.Customer(ctx, string(args.ID))
	if errors.Is(err, crm.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, "customer", err)
	}
	return &customerResolver{c: c}, nil
}

func (r *Resolver) Product(ctx context.Context, args struct{ ID graphql.ID }) (*productResolver, error) {
	p, err := r.Svc.Product(ctx, string(args.ID))
	if errors.Is(err, crm.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, "product", err)
	}
	return &productResolver{p: p}, nil
}

func (r *Resolver) Order(ctx context.Context, args struct{ ID graphql.ID }) (*orderResolver, error) {
	o, err := r.Svc.Order(ctx, string(args.ID))
	if errors.Is(err, crm.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.fail(ctx, "order", err)
	}
	return &orderResolver{o: o, svc: r.Svc}, nil
}

type customerFilterInput struct {
	Name         *string
	Email        *string
	CreatedAtGte *graphql.Time
	CreatedAtLte *graphql.Time
	PhonePattern *string
}

func (f *customerFilterInput) toCRM() crm.CustomerFilter {
	if f == nil {
		return crm.CustomerFilter{}
	}
	return crm.CustomerFilter{
		Name:         deref(f.Name),
		Email:        deref(f.Email),
		CreatedAtGte: timePtr(f.CreatedAtGte),
		CreatedAtLte: timePtr(f.CreatedAtLte),
		PhonePrefix:  deref(f.PhonePattern),
	}
}

type productFilterInput struct {
	Name     *string
	PriceGte *Decimal
	PriceLte *Decimal
	StockGte *int32
	StockLte *int32
	LowStock *bool
}

func (f *productFilterInput) toCRM() crm.ProductFilter {
	if f == nil {
		return crm.ProductFilter{}
	}
	return crm.ProductFilter{
		Name:     deref(f.Name),
		PriceGte: moneyPtr(f.PriceGte),
		PriceLte: moneyPtr(f.PriceLte),
		StockGte: intPtr(f.StockGte),
		StockLte: intPtr(f.StockLte),
		LowStock: f.LowStock != nil && *f.LowStock,
	}
}

type orderFilterInput struct {
	CustomerID     *graphql.ID
	CustomerName   *string
	ProductID      *graphql.ID
	ProductName    *string
	TotalAmountGte *Decimal
	TotalAmountLte *Decimal
	OrderDateGte   *graphql.Time
	OrderDateLte   *graphql.Time
}

func (f *orderFilterInput) toCRM() crm.OrderFilter {
	if f == nil {
		return crm.OrderFilter{}
	}
	return crm.OrderFilter{
		CustomerID:   derefID(f.CustomerID),
		CustomerName: deref(f.CustomerName),
		ProductID:    derefID(f.ProductID),
		ProductName:  deref(f.ProductName),
		TotalGte:     moneyPtr(f.TotalAmountGte),
		TotalLte:     moneyPtr(f.TotalAmountLte),
		OrderDateGte: timePtr(f.OrderDateGte),
		OrderDateLte: timePtr(f.OrderDateLte),
	}
}

func pageArgs(first *int32, after, orderBy *string) crm.PageArgs {
	return crm.PageArgs{First: intPtr(first), After: deref(after), OrderBy: deref(orderBy)}
}

type customerConnection = connection[crm.Customer, *customerResolver]

func (r *Resolver) AllCustomers(ctx context.Context, args struct {
	First   *int32
	After   *string
	OrderBy *string
	Filter  *customerFilterInput
}) (*customerConnection, error) {
	page, err := r.Svc.Customers(ctx, args.Filter.toCRM(), pageArgs(args.First, args.After, args.OrderBy))
	if err != nil {
		return nil, r.fail(ctx, "allCustomers", err)
	}
	return &customerConnection{page: page, wrap: func(c crm.Customer) *customerResolver {
		return &customerResolver{c: c}
	}}, nil
}

type productConnection = connection[crm.Product, *productResolver]

func (r *Resolver) AllProducts(ctx context.Context, args struct {
	First   *int32
	After   *string
	OrderBy *string
	Filter  *productFilterInput
}) (*productConnection, error) {
	page, err := r.Svc.Products(ctx, args.Filter.toCRM(), pageArgs(args.First, args.After, args.OrderBy))
	if err != nil {
		return nil, r.fail(ctx, "allProducts", err)
	}
	return &productConnection{page: page, wrap: func(p crm.Product) *productResolver {
		return &productResolver{p: p}
	}}, nil
}

type orderConnection = connection[crm.Order, *orderResolver]

func (r *Resolver) AllOrders(ctx context.Context, args struct {
	First   *int32
	After   *string
	OrderBy *string
	Filter  *orderFilterInput
}) (*orderConnection, error) {
	page, err := r.Svc.Orders(ctx, args.Filter.toCRM(), pageArgs(args.First, args.After, args.OrderBy))
	if err != nil {
		return nil, r.fail(ctx, "allOrders", err)
	}
	return &orderConnection{page: page, wrap: func(o crm.Order) *orderResolver {
		return &orderResolver{o: o, svc: r.Svc}
	}}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefID(id *graphql.ID) string {
	if id == nil {
		return ""
	}
	return string(*id)
}

func intPtr(i *int32) *int {
	if i == nil {
		return nil
	}
	v := int(*i)
	return &v
}

func timePtr(t *graphql.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.Time
	return &v
}
