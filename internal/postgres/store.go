package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct{ DB *pgxpool.Pool }

var _ crm.Store = (*Store)(nil)

func (s *Store) Ping(ctx context.Context) error {
	if err := s.DB.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", crm.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) InsertCustomers(ctx context.Context, cs []crm.Customer) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range cs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO customers(id, name, email, phone, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.Name, c.Email, c.Phone, c.CreatedAt,
		); err != nil {
			return mapErr(err)
		}
	}
	return mapErr(tx.Commit(ctx))
}

func (s *Store) ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error) {
	out := make(map[string]bool)
	if len(emails) == 0 {
		return out, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT email FROM customers WHERE email = ANY($1)`, emails)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out[e] = true
	}
	return out, rows.Err()
}

const customerCols = `c.id, c.name, c.email, c.phone, c.created_at`

func scanCustomer(row pgx.Row) (crm.Customer, error) {
	var c crm.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt)
	c.CreatedAt = c.CreatedAt.UTC()
	return c, err
}

func (s *Store) GetCustomer(ctx context.Context, id string) (crm.Customer, error) {
	c, err := scanCustomer(s.DB.QueryRow(ctx, `SELECT `+customerCols+` FROM customers c WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return crm.Customer{}, crm.ErrNotFound
	}
	return c, mapErr(err)
}

var customerSortCols = map[crm.SortField]string{
	crm.SortName:      "c.name",
	crm.SortEmail:     "c.email",
	crm.SortCreatedAt: "c.created_at",
}

func (s *Store) ListCustomers(ctx context.Context, f crm.CustomerFilter, w crm.Window) ([]crm.Customer, error) {
	var q query
	if f.Name != "" {
		q.where = append(q.where, "c.name ILIKE "+q.arg(likePattern(f.Name)))
	}
	if f.Email != "" {
		q.where = append(q.where, "c.email ILIKE "+q.arg(likePattern(f.Email)))
	}
	if f.CreatedAtGte != nil {
		q.where = append(q.where, "c.created_at >= "+q.arg(*f.CreatedAtGte))
	}
	if f.CreatedAtLte != nil {
		q.where = append(q.where, "c.created_at <= "+q.arg(*f.CreatedAtLte))
	}
	if f.PhonePrefix != "" {
		q.where = append(q.where, "c.phone LIKE "+q.arg(escapeLike(f.PhonePrefix)+"%"))
	}
	col := customerSortCols[w.Sort.Field]
	q.keyset(col, "c.id", w)

	rows, err := s.DB.Query(ctx, `SELECT `+customerCols+` FROM customers c`+q.whereSQL()+q.orderSQL(col, "c.id", w), q.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]crm.Customer, 0, w.Limit)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteInactiveCustomers is a single statement, so the deletion (and the
// cascade to orders) is atomic.
func (s *Store) DeleteInactiveCustomers(ctx context.Context, cutoff time.Time) (int, error) {
	ct, err := s.DB.Exec(ctx, `
		DELETE FROM customers c
		WHERE NOT EXISTS (
			SELECT 1 FROM orders o
			WHERE o.customer_id = c.id AND o.order_date >= $1
		)`, cutoff)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(ct.RowsAffected()), nil
}

func (s *Store) InsertProduct(ctx context.Context, p crm.Product) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, price_cents, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Name, p.Description, int64(p.Price), p.Stock, p.CreatedAt, p.UpdatedAt,
	)
	return mapErr(err)
}

const productCols = `p.id, p.name, p.description, p.price_cents, p.stock, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (crm.Product, error) {
	var (
		p     crm.Product
		price int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	p.Price = crm.Money(price)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, err
}

func collectProducts(rows pgx.Rows, capacity int) ([]crm.Product, error) {
	defer rows.Close()
	out := make([]crm.Product, 0, capacity)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProducts(ctx context.Context, ids []string) ([]crm.Product, error) {
	if len(ids) == 0 {
		return []crm.Product{}, nil
	}
	rows, err := s.DB.Query(ctx, `SELECT `+productCols+` FROM products p WHERE p.id = ANY($1)`, ids)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectProducts(rows, len(ids))
}

var productSortCols = map[crm.SortField]string{
	crm.SortName:      "p.name",
	crm.SortPrice:     "p.price_cents",
	crm.SortStock:     "p.stock",
	crm.SortCreatedAt: "p.created_at",
}

func (s *Store) ListProducts(ctx context.Context, f crm.ProductFilter, w crm.Window) ([]crm.Product, error) {
	var q query
	if f.Name != "" {
		q.where = append(q.where, "p.name ILIKE "+q.arg(likePattern(f.Name)))
	}
	if f.PriceGte != nil {
		q.where = append(q.where, "p.price_cents >= "+q.arg(int64(*f.PriceGte)))
	}
	if f.PriceLte != nil {
		q.where = append(q.where, "p.price_cents <= "+q.arg(int64(*f.PriceLte)))
	}
	if f.StockGte != nil {
		q.where = append(q.where, "p.stock >= "+q.arg(*f.StockGte))
	}
	if f.StockLte != nil {
		q.where = append(q.where, "p.stock <= "+q.arg(*f.StockLte))
	}
	if f.LowStock {
		q.where = append(q.where, "p.stock < "+q.arg(crm.DefaultLowStockThreshold))
	}
	col := productSortCols[w.Sort.Field]
	q.keyset(col, "p.id", w)

	rows, err := s.DB.Query(ctx, `SELECT `+productCols+` FROM products p`+q.whereSQL()+q.orderSQL(col, "p.id", w), q.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	return collectProducts(rows, w.Limit)
}

func (s *Store) RestockBelow(ctx context.Context, threshold, amount int, at time.Time) ([]crm.Product, error) {
	rows, err := s.DB.Query(ctx, `
		UPDATE products p SET stock = p.stock + $2, updated_at = $3
		WHERE p.stock < $1
		RETURNING `+productCols, threshold, amount, at)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := collectProducts(rows, 0)
	if err != nil {
		return nil, mapErr(err)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertOrder(ctx context.Context, o crm.Order, products []crm.Product) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders(id, customer_id, total_cents, order_date, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID, o.CustomerID, int64(o.TotalAmount), o.OrderDate, o.CreatedAt,
	); err != nil {
		return mapErr(err)
	}
	for i, p := range products {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_products(order_id, product_id, position, unit_price_cents)
			VALUES ($1, $2, $3, $4)`,
			o.ID, p.ID, i, int64(p.Price),
		); err != nil {
			return mapErr(err)
		}
	}
	return mapErr(tx.Commit(ctx))
}

const orderCols = `o.id, o.customer_id, o.total_cents, o.order_date, o.created_at,
	ARRAY(SELECT op.product_id FROM order_products op WHERE op.order_id = o.id ORDER BY op.position)`

func scanOrder(row pgx.Row) (crm.Order, error) {
	var (
		o     crm.Order
		total int64
	)
	err := row.Scan(&o.ID, &o.CustomerID, &total, &o.OrderDate, &o.CreatedAt, &o.ProductIDs)
	o.TotalAmount = crm.Money(total)
	o.OrderDate = o.OrderDate.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	return o, err
}

func (s *Store) GetOrder(ctx context.Context, id string) (crm.Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders o WHERE o.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return crm.Order{}, crm.ErrNotFound
	}
	return o, mapErr(err)
}

var orderSortCols = map[crm.SortField]string{
	crm.SortOrderDate:   "o.order_date",
	crm.SortTotalAmount: "o.total_cents",
	crm.SortCreatedAt:   "o.created_at",
}

func (s *Store) ListOrders(ctx context.Context, f crm.OrderFilter, w crm.Window) ([]crm.Order, error) {
	var q query
	if f.CustomerID != "" {
		q.where = append(q.where, "o.customer_id = "+q.arg(f.CustomerID))
	}
	if f.CustomerName != "" {
		q.where = append(q.where, `EXISTS (SELECT 1 FROM customers c
			WHERE c.id = o.customer_id AND c.name ILIKE `+q.arg(likePattern(f.CustomerName))+`)`)
	}
	if f.ProductName != "" {
		q.where = append(q.where, `EXISTS (SELECT 1 FROM order_products op JOIN products p ON p.id = op.product_id
			WHERE op.order_id = o.id AND p.name ILIKE `+q.arg(likePattern(f.ProductName))+`)`)
	}
	if f.ProductID != "" {
		q.where = append(q.where, `EXISTS (SELECT 1 FROM order_products op
			WHERE op.order_id = o.id AND op.product_id = `+q.arg(f.ProductID)+`)`)
	}
	if f.TotalGte != nil {
		q.where = append(q.where, "o.total_cents >= "+q.arg(int64(*f.TotalGte)))
	}
	if f.TotalLte != nil {
		q.where = append(q.where, "o.total_cents <= "+q.arg(int64(*f.TotalLte)))
	}
	if f.OrderDateGte != nil {
		q.where = append(q.where, "o.order_date >= "+q.arg(*f.OrderDateGte))
	}
	if f.OrderDateLte != nil {
		q.where = append(q.where, "o.order_date <= "+q.arg(*f.OrderDateLte))
	}
	col := orderSortCols[w.Sort.Field]
	q.keyset(col, "o.id", w)

	rows, err := s.DB.Query(ctx, `SELECT `+orderCols+` FROM orders o`+q.whereSQL()+q.orderSQL(col, "o.id", w), q.args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make([]crm.Order, 0, w.Limit)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Stats reads all three aggregates in one statement so they come from the
// same snapshot.
func (s *Store) Stats(ctx context.Context) (crm.Stats, error) {
	var customers, orders, revenue int64
	err := s.DB.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM customers),
			(SELECT count(*) FROM orders),
			(SELECT COALESCE(sum(total_cents), 0)::bigint FROM orders)`,
	).Scan(&customers, &orders, &revenue)
	if err != nil {
		return crm.Stats{}, mapErr(err)
	}
	return crm.Stats{Customers: int(customers), Orders: int(orders), Revenue: crm.Money(revenue)}, nil
}

// query collects WHERE clauses and their positional args.
type query struct {
	where []string
	args  []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) keyset(col, idCol string, w crm.Window) {
	if w.After == nil {
		return
	}
	op := ">"
	if w.Sort.Desc {
		op = "<"
	}
	q.where = append(q.where, fmt.Sprintf("(%s, %s) %s (%s, %s)",
		col, idCol, op, q.arg(w.After.Value.Arg()), q.arg(w.After.ID)))
}

func (q *query) whereSQL() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func (q *query) orderSQL(col, idCol string, w crm.Window) string {
	dir := "ASC"
	if w.Sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, %s %s LIMIT %d", col, dir, idCol, dir, w.Limit)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func likePattern(s string) string { return "%" + escapeLike(s) + "%" }

// mapErr folds constraint and transaction failures into crm.ErrIntegrity so
// callers can tell them apart from validation problems.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23505" && pgErr.ConstraintName == "customers_email_key":
			return fmt.Errorf("%w: %s", crm.ErrDuplicateEmail, pgErr.Detail)
		case strings.HasPrefix(pgErr.Code, "23"), pgErr.Code == "40001", pgErr.Code == "40P01":
			return fmt.Errorf("%w: %s", crm.ErrIntegrity, pgErr.Message)
		}
	}
	return err
}
