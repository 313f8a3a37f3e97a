package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateEmail is returned by stores when the unique email index
// rejects a write.
var ErrDuplicateEmail = fmt.Errorf("%w: duplicate email", ErrIntegrity)

// Service owns validation and referential checks for every mutation and
// the paging contract for every list. All callers (GraphQL, jobs, CLI) go
// through it.
type Service struct {
	Store  Store
	Events EventPublisher
	Log    *slog.Logger

	// Now and NewID default to the wall clock and random UUIDs.
	Now   func() time.Time
	NewID func() string

	RestockAmount int
	ServiceName   string
}

func (s *Service) now() time.Time {
	t := time.Now()
	if s.Now != nil {
		t = s.Now()
	}
	// postgres keeps microseconds; trim here so cursors round-trip.
	return t.UTC().Truncate(time.Microsecond)
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

// Hello is the liveness probe: it only succeeds when the store answers.
func (s *Service) Hello(ctx context.Context) (string, error) {
	if err := s.Store.Ping(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return Greeting, nil
}

func (s *Service) CreateCustomer(ctx context.Context, in CustomerInput) (Customer, error) {
	if err := validateStruct(in); err != nil {
		return Customer{}, err
	}
	taken, err := s.Store.ExistingEmails(ctx, []string{in.Email})
	if err != nil {
		return Customer{}, fmt.Errorf("check email: %w", err)
	}
	if taken[in.Email] {
		return Customer{}, invalid("email", "email already exists")
	}

	c := s.newCustomer(in)
	if err := s.Store.InsertCustomers(ctx, []Customer{c}); err != nil {
		// lost a race with a concurrent insert of the same email
		if errors.Is(err, ErrDuplicateEmail) {
			return Customer{}, invalid("email", "email already exists")
		}
		return Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	s.emitCustomerCreated(ctx, c)
	return c, nil
}

// BulkCreateCustomers validates every item on its own, then writes the
// valid ones in a single transaction. Invalid items are reported as
// "Record <n>: ..." strings (n is 1-based) and do not stop the batch. A
// storage failure rolls back the whole batch and is returned as an error.
func (s *Service) BulkCreateCustomers(ctx context.Context, ins []CustomerInput) (BulkResult, error) {
	res := BulkResult{Customers: []Customer{}, Errors: []string{}}
	if len(ins) == 0 {
		return res, nil
	}

	emails := make([]string, 0, len(ins))
	for _, in := range ins {
		emails = append(emails, in.Email)
	}
	taken, err := s.Store.ExistingEmails(ctx, emails)
	if err != nil {
		return BulkResult{}, fmt.Errorf("check emails: %w", err)
	}

	pending := make(map[string]int, len(ins))
	batch := make([]Customer, 0, len(ins))
	for i, in := range ins {
		n := i + 1
		if err := validateStruct(in); err != nil {
			res.Errors = append(res.Errors, recordError(n, err))
			continue
		}
		if taken[in.Email] {
			res.Errors = append(res.Errors, fmt.Sprintf("Record %d: email: email '%s' already exists", n, in.Email))
			continue
		}
		if prev, dup := pending[in.Email]; dup {
			res.Errors = append(res.Errors, fmt.Sprintf("Record %d: email: email '%s' already used by record %d", n, in.Email, prev))
			continue
		}
		pending[in.Email] = n
		batch = append(batch, s.newCustomer(in))
	}

	if len(batch) == 0 {
		return res, nil
	}
	if err := s.Store.InsertCustomers(ctx, batch); err != nil {
		return BulkResult{}, fmt.Errorf("bulk insert customers: %w", err)
	}
	res.Customers = batch
	for _, c := range batch {
		s.emitCustomerCreated(ctx, c)
	}
	return res, nil
}

func recordError(n int, err error) string {
	if fields, ok := FieldErrors(err); ok {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, f.String())
		}
		return fmt.Sprintf("Record %d: %s", n, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("Record %d: %v", n, err)
}

func (s *Service) newCustomer(in CustomerInput) Customer {
	return Customer{
		ID:        s.newID(),
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		CreatedAt: s.now(),
	}
}

func (s *Service) emitCustomerCreated(ctx context.Context, c Customer) {
	s.emit(ctx, TopicCustomerCreated, EventCustomerCreated, c.ID, CustomerCreatedPayload{
		CustomerID: c.ID, Name: c.Name, Email: c.Email,
	})
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := validateStruct(in); err != nil {
		return Product{}, err
	}
	stock := 0
	if in.Stock != nil {
		stock = *in.Stock
	}
	now := s.now()
	p := Product{
		ID:          s.newID(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.InsertProduct(ctx, p); err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	s.emit(ctx, TopicProductCreated, EventProductCreated, p.ID, ProductCreatedPayload{
		ProductID: p.ID, Name: p.Name, PriceCents: int64(p.Price), Stock: p.Stock,
	})
	return p, nil
}

// CreateOrder resolves the customer, then every product, and only then
// writes. The total is computed here from current prices; callers never
// supply it. Repeated product ids count once.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (Order, error) {
	if err := validateStruct(in); err != nil {
		return Order{}, err
	}

	if _, err := s.Store.GetCustomer(ctx, in.CustomerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Order{}, &NotFoundError{Kind: "customer", Field: "customerId", IDs: []string{in.CustomerID}}
		}
		return Order{}, fmt.Errorf("load customer: %w", err)
	}

	ids := dedupe(in.ProductIDs)
	products, err := s.ProductsByIDs(ctx, ids)
	if err != nil {
		return Order{}, err
	}
	if len(products) == 0 {
		return Order{}, invalid("productIds", "at least one product must be selected")
	}

	var total Money
	for _, p := range products {
		if total, err = total.Add(p.Price); err != nil {
			return Order{}, invalid("totalAmount", "order total is too large")
		}
	}
	now := s.now()
	orderDate := now
	if in.OrderDate != nil {
		orderDate = in.OrderDate.UTC().Truncate(time.Microsecond)
	}
	o := Order{
		ID:          s.newID(),
		CustomerID:  in.CustomerID,
		ProductIDs:  ids,
		TotalAmount: total,
		OrderDate:   orderDate,
		CreatedAt:   now,
	}
	if err := s.Store.InsertOrder(ctx, o, products); err != nil {
		return Order{}, fmt.Errorf("insert order: %w", err)
	}
	s.emit(ctx, TopicOrderCreated, EventOrderCreated, o.ID, OrderCreatedPayload{
		OrderID: o.ID, CustomerID: o.CustomerID, ProductIDs: o.ProductIDs,
		TotalCents: int64(o.TotalAmount), OrderDate: o.OrderDate,
	})
	return o, nil
}

// ProductsByIDs returns the products in the order of ids. If any id is
// unknown it fails with a NotFoundError naming all missing ids.
func (s *Service) ProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	found, err := s.Store.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[string]Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	out := make([]Product, 0, len(ids))
	var missing []string
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, p)
	}
	if len(missing) > 0 {
		return nil, &NotFoundError{Kind: "products", Field: "productIds", IDs: missing}
	}
	return out, nil
}

// UpdateLowStockProducts restocks every product below threshold (default
// DefaultLowStockThreshold). No qualifying product is still a success.
func (s *Service) UpdateLowStockProducts(ctx context.Context, threshold *int) (RestockResult, error) {
	t := DefaultLowStockThreshold
	if threshold != nil {
		t = *threshold
	}
	amount := s.RestockAmount
	if amount <= 0 {
		amount = DefaultRestockAmount
	}
	updated, err := s.Store.RestockBelow(ctx, t, amount, s.now())
	if err != nil {
		return RestockResult{}, fmt.Errorf("restock products: %w", err)
	}
	if updated == nil {
		updated = []Product{}
	}
	if len(updated) > 0 {
		ids := make([]string, 0, len(updated))
		for _, p := range updated {
			ids = append(ids, p.ID)
		}
		s.emit(ctx, TopicProductsRestocked, EventProductsRestocked, "", ProductsRestockedPayload{
			ProductIDs: ids, Threshold: t, Amount: amount,
		})
	}
	return RestockResult{
		Products: updated,
		Message:  fmt.Sprintf("Successfully updated %d low-stock products", len(updated)),
	}, nil
}

// PurgeInactiveCustomers deletes customers with no order dated within the
// last window (including customers with no orders at all).
func (s *Service) PurgeInactiveCustomers(ctx context.Context, window time.Duration) (int, error) {
	cutoff := s.now().Add(-window)
	n, err := s.Store.DeleteInactiveCustomers(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete inactive customers: %w", err)
	}
	if n > 0 {
		s.emit(ctx, TopicCustomersPurged, EventCustomersPurged, "", CustomersPurgedPayload{Deleted: n, Cutoff: cutoff})
	}
	return n, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.Store.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

func (s *Service) Customer(ctx context.Context, id string) (Customer, error) {
	return s.Store.GetCustomer(ctx, id)
}

func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	ps, err := s.Store.GetProducts(ctx, []string{id})
	if err != nil {
		return Product{}, err
	}
	if len(ps) == 0 {
		return Product{}, ErrNotFound
	}
	return ps[0], nil
}

func (s *Service) Order(ctx context.Context, id string) (Order, error) {
	return s.Store.GetOrder(ctx, id)
}

func (s *Service) Customers(ctx context.Context, f CustomerFilter, args PageArgs) (Page[Customer], error) {
	w, size, err := newWindow(args, customerSorts)
	if err != nil {
		return Page[Customer]{}, err
	}
	rows, err := s.Store.ListCustomers(ctx, f, w)
	if err != nil {
		return Page[Customer]{}, fmt.Errorf("list customers: %w", err)
	}
	return buildPage(rows, size, w, func(c Customer) (SortValue, string) {
		return c.SortKey(w.Sort.Field), c.ID
	}), nil
}

func (s *Service) Products(ctx context.Context, f ProductFilter, args PageArgs) (Page[Product], error) {
	w, size, err := newWindow(args, productSorts)
	if err != nil {
		return Page[Product]{}, err
	}
	rows, err := s.Store.ListProducts(ctx, f, w)
	if err != nil {
		return Page[Product]{}, fmt.Errorf("list products: %w", err)
	}
	return buildPage(rows, size, w, func(p Product) (SortValue, string) {
		return p.SortKey(w.Sort.Field), p.ID
	}), nil
}

func (s *Service) Orders(ctx context.Context, f OrderFilter, args PageArgs) (Page[Order], error) {
	w, size, err := newWindow(args, orderSorts)
	if err != nil {
		return Page[Order]{}, err
	}
	rows, err := s.Store.ListOrders(ctx, f, w)
	if err != nil {
		return Page[Order]{}, fmt.Errorf("list orders: %w", err)
	}
	return buildPage(rows, size, w, func(o Order) (SortValue, string) {
		return o.SortKey(w.Sort.Field), o.ID
	}), nil
}

func (s *Service) emit(ctx context.Context, topic, eventType, correlationID string, payload any) {
	if s.Events == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		s.logger().Error("marshal event payload", "event_type", eventType, "error", err)
		return
	}
	s.Events.PublishEvent(topic, Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now(),
		Producer:      s.ServiceName,
		TraceID:       TraceID(ctx),
		CorrelationID: correlationID,
		Payload:       b,
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

type traceKey struct{}

// WithTraceID tags ctx so events emitted while serving it carry the id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
