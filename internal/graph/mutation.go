package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

type customerInput struct {
	Name  string
	Email string
	Phone *string
}

func (in customerInput) toCRM() crm.CustomerInput {
	return crm.CustomerInput{Name: in.Name, Email: in.Email, Phone: deref(in.Phone)}
}

type productInput struct {
	Name        string
	Description *string
	Price       Decimal
	Stock       *int32
}

type orderInput struct {
	CustomerID graphql.ID
	ProductIDs []graphql.ID
	OrderDate  *graphql.Time
}

type createCustomerPayload struct {
	customer *customerResolver
	message  string
	errors   []crm.FieldError
}

func (p *createCustomerPayload) Customer() *customerResolver   { return p.customer }
func (p *createCustomerPayload) Message() *string              { return optString(p.message) }
func (p *createCustomerPayload) Errors() []*fieldErrorResolver { return wrapFieldErrors(p.errors) }

// CreateCustomer reports validation problems inside the payload; only
// infrastructure failures become GraphQL errors.
func (r *Resolver) CreateCustomer(ctx context.Context, args struct{ Input customerInput }) (*createCustomerPayload, error) {
	c, err := r.Svc.CreateCustomer(ctx, args.Input.toCRM())
	if err != nil {
		if fes, ok := crm.FieldErrors(err); ok {
			return &createCustomerPayload{errors: fes}, nil
		}
		return nil, r.fail(ctx, "createCustomer", err)
	}
	return &createCustomerPayload{customer: &customerResolver{c: c}, message: "Customer created successfully."}, nil
}

type bulkCreateCustomersPayload struct {
	res crm.BulkResult
}

func (p *bulkCreateCustomersPayload) Customers() []*customerResolver {
	out := make([]*customerResolver, 0, len(p.res.Customers))
	for _, c := range p.res.Customers {
		out = append(out, &customerResolver{c: c})
	}
	return out
}

func (p *bulkCreateCustomersPayload) Errors() []string { return p.res.Errors }

func (r *Resolver) BulkCreateCustomers(ctx context.Context, args struct{ Input []customerInput }) (*bulkCreateCustomersPayload, error) {
	ins := make([]crm.CustomerInput, 0, len(args.Input))
	for _, in := range args.Input {
		ins = append(ins, in.toCRM())
	}
	res, err := r.Svc.BulkCreateCustomers(ctx, ins)
	if err != nil {
		return nil, r.fail(ctx, "bulkCreateCustomers", err)
	}
	return &bulkCreateCustomersPayload{res: res}, nil
}

type createProductPayload struct {
	product *productResolver
	message string
	errors  []crm.FieldError
}

func (p *createProductPayload) Product() *productResolver     { return p.product }
func (p *createProductPayload) Message() *string              { return optString(p.message) }
func (p *createProductPayload) Errors() []*fieldErrorResolver { return wrapFieldErrors(p.errors) }

func (r *Resolver) CreateProduct(ctx context.Context, args struct{ Input productInput }) (*createProductPayload, error) {
	in := crm.ProductInput{
		Name:        args.Input.Name,
		Description: deref(args.Input.Description),
		Price:       crm.Money(args.Input.Price),
		Stock:       intPtr(args.Input.Stock),
	}
	p, err := r.Svc.CreateProduct(ctx, in)
	if err != nil {
		if fes, ok := crm.FieldErrors(err); ok {
			return &createProductPayload{errors: fes}, nil
		}
		return nil, r.fail(ctx, "createProduct", err)
	}
	return &createProductPayload{product: &productResolver{p: p}, message: "Product created successfully."}, nil
}

type createOrderPayload struct {
	order   *orderResolver
	message string
	errors  []crm.FieldError
}

func (p *createOrderPayload) Order() *orderResolver         { return p.order }
func (p *createOrderPayload) Message() *string              { return optString(p.message) }
func (p *createOrderPayload) Errors() []*fieldErrorResolver { return wrapFieldErrors(p.errors) }

func (r *Resolver) CreateOrder(ctx context.Context, args struct{ Input orderInput }) (*createOrderPayload, error) {
	in := crm.OrderInput{
		CustomerID: string(args.Input.CustomerID),
		ProductIDs: make([]string, 0, len(args.Input.ProductIDs)),
		OrderDate:  timePtr(args.Input.OrderDate),
	}
	for _, id := range args.Input.ProductIDs {
		in.ProductIDs = append(in.ProductIDs, string(id))
	}
	o, err := r.Svc.CreateOrder(ctx, in)
	if err != nil {
		if fes, ok := crm.FieldErrors(err); ok {
			return &createOrderPayload{errors: fes}, nil
		}
		return nil, r.fail(ctx, "createOrder", err)
	}
	return &createOrderPayload{order: &orderResolver{o: o, svc: r.Svc}, message: "Order created successfully."}, nil
}

type restockPayload struct {
	res crm.RestockResult
}

func (p *restockPayload) Success() bool                       { return true }
func (p *restockPayload) Message() string                     { return p.res.Message }
func (p *restockPayload) Count() int32                        { return int32(len(p.res.Products)) }
func (p *restockPayload) UpdatedProducts() []*productResolver { return wrapProducts(p.res.Products) }

func (r *Resolver) UpdateLowStockProducts(ctx context.Context, args struct{ Threshold *int32 }) (*restockPayload, error) {
	res, err := r.Svc.UpdateLowStockProducts(ctx, intPtr(args.Threshold))
	if err != nil {
		return nil, r.fail(ctx, "updateLowStockProducts", err)
	}
	return &restockPayload{res: res}, nil
}
