package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

type customerResolver struct {
	c crm.Customer
}

func (r *customerResolver) ID() graphql.ID          { return graphql.ID(r.c.ID) }
func (r *customerResolver) Name() string            { return r.c.Name }
func (r *customerResolver) Email() string           { return r.c.Email }
func (r *customerResolver) Phone() *string          { return optString(r.c.Phone) }
func (r *customerResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.c.CreatedAt} }

type productResolver struct {
	p crm.Product
}

func (r *productResolver) ID() graphql.ID          { return graphql.ID(r.p.ID) }
func (r *productResolver) Name() string            { return r.p.Name }
func (r *productResolver) Description() *string    { return optString(r.p.Description) }
func (r *productResolver) Price() Decimal          { return Decimal(r.p.Price) }
func (r *productResolver) Stock() int32            { return int32(r.p.Stock) }
func (r *productResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.p.CreatedAt} }
func (r *productResolver) UpdatedAt() graphql.Time { return graphql.Time{Time: r.p.UpdatedAt} }

// orderResolver loads its relations lazily, only when the query selects them.
type orderResolver struct {
	o   crm.Order
	svc *crm.Service
}

func (r *orderResolver) ID() graphql.ID          { return graphql.ID(r.o.ID) }
func (r *orderResolver) TotalAmount() Decimal    { return Decimal(r.o.TotalAmount) }
func (r *orderResolver) OrderDate() graphql.Time { return graphql.Time{Time: r.o.OrderDate} }
func (r *orderResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.o.CreatedAt} }

func (r *orderResolver) Customer(ctx context.Context) (*customerResolver, error) {
	c, err := r.svc.Customer(ctx, r.o.CustomerID)
	if err != nil {
		return nil, err
	}
	return &customerResolver{c: c}, nil
}

func (r *orderResolver) Products(ctx context.Context) ([]*productResolver, error) {
	ps, err := r.svc.ProductsByIDs(ctx, r.o.ProductIDs)
	if err != nil {
		return nil, err
	}
	return wrapProducts(ps), nil
}

func wrapProducts(ps []crm.Product) []*productResolver {
	out := make([]*productResolver, 0, len(ps))
	for _, p := range ps {
		out = append(out, &productResolver{p: p})
	}
	return out
}

type fieldErrorResolver struct {
	e crm.FieldError
}

func (r *fieldErrorResolver) Field() string   { return r.e.Field }
func (r *fieldErrorResolver) Message() string { return r.e.Reason }

func wrapFieldErrors(fes []crm.FieldError) []*fieldErrorResolver {
	out := make([]*fieldErrorResolver, 0, len(fes))
	for _, e := range fes {
		out = append(out, &fieldErrorResolver{e: e})
	}
	return out
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
