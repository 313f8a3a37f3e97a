// Package memstore is an in-memory crm.Store. It backs STORE_DRIVER=memory
// for local runs and is the store used by package tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

// Store keeps every table in maps under one lock, so each method is atomic.
type Store struct {
	mu        sync.RWMutex
	customers map[string]crm.Customer
	products  map[string]crm.Product
	orders    map[string]crm.Order
	// unit prices captured per order, keyed by order id then product id
	lines map[string]map[string]crm.Money
}

var _ crm.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		customers: make(map[string]crm.Customer),
		products:  make(map[string]crm.Product),
		orders:    make(map[string]crm.Order),
		lines:     make(map[string]map[string]crm.Money),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) InsertCustomers(_ context.Context, cs []crm.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// check the whole batch before touching the map
	emails := make(map[string]bool, len(s.customers)+len(cs))
	for _, c := range s.customers {
		emails[c.Email] = true
	}
	for _, c := range cs {
		if emails[c.Email] {
			return crm.ErrDuplicateEmail
		}
		emails[c.Email] = true
	}
	for _, c := range cs {
		s.customers[c.ID] = c
	}
	return nil
}

func (s *Store) ExistingEmails(_ context.Context, emails []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(emails))
	for _, e := range emails {
		want[e] = true
	}
	out := make(map[string]bool)
	for _, c := range s.customers {
		if want[c.Email] {
			out[c.Email] = true
		}
	}
	return out, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (crm.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return crm.Customer{}, crm.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCustomers(_ context.Context, f crm.CustomerFilter, w crm.Window) ([]crm.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]crm.Customer, 0)
	for _, c := range s.customers {
		if f.Match(c) && w.Passes(c.SortKey(w.Sort.Field), c.ID) {
			out = append(out, c)
		}
	}
	return window(out, w, func(c crm.Customer) (crm.SortValue, string) {
		return c.SortKey(w.Sort.Field), c.ID
	}), nil
}

func (s *Store) DeleteInactiveCustomers(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[string]bool)
	for _, o := range s.orders {
		if !o.OrderDate.Before(cutoff) {
			active[o.CustomerID] = true
		}
	}
	n := 0
	for id := range s.customers {
		if active[id] {
			continue
		}
		delete(s.customers, id)
		n++
	}
	// cascade
	for id, o := range s.orders {
		if _, ok := s.customers[o.CustomerID]; !ok {
			delete(s.orders, id)
			delete(s.lines, id)
		}
	}
	return n, nil
}

func (s *Store) InsertProduct(_ context.Context, p crm.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products[p.ID] = p
	return nil
}

func (s *Store) GetProducts(_ context.Context, ids []string) ([]crm.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]crm.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListProducts(_ context.Context, f crm.ProductFilter, w crm.Window) ([]crm.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]crm.Product, 0)
	for _, p := range s.products {
		if f.Match(p) && w.Passes(p.SortKey(w.Sort.Field), p.ID) {
			out = append(out, p)
		}
	}
	return window(out, w, func(p crm.Product) (crm.SortValue, string) {
		return p.SortKey(w.Sort.Field), p.ID
	}), nil
}

func (s *Store) RestockBelow(_ context.Context, threshold, amount int, at time.Time) ([]crm.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]crm.Product, 0)
	for id, p := range s.products {
		if p.Stock >= threshold {
			continue
		}
		p.Stock += amount
		p.UpdatedAt = at
		s.products[id] = p
		out = append(out, p)
	}
	sortByCreated(out)
	return out, nil
}

func (s *Store) InsertOrder(_ context.Context, o crm.Order, products []crm.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.customers[o.CustomerID]; !ok {
		return crm.ErrIntegrity
	}
	prices := make(map[string]crm.Money, len(products))
	for _, p := range products {
		if _, ok := s.products[p.ID]; !ok {
			return crm.ErrIntegrity
		}
		prices[p.ID] = p.Price
	}
	o.ProductIDs = slices.Clone(o.ProductIDs)
	s.orders[o.ID] = o
	s.lines[o.ID] = prices
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (crm.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return crm.Order{}, crm.ErrNotFound
	}
	o.ProductIDs = slices.Clone(o.ProductIDs)
	return o, nil
}

func (s *Store) ListOrders(_ context.Context, f crm.OrderFilter, w crm.Window) ([]crm.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]crm.Order, 0)
	for _, o := range s.orders {
		if !w.Passes(o.SortKey(w.Sort.Field), o.ID) {
			continue
		}
		products := make([]crm.Product, 0, len(o.ProductIDs))
		for _, id := range o.ProductIDs {
			products = append(products, s.products[id])
		}
		if !f.Match(o, s.customers[o.CustomerID], products) {
			continue
		}
		o.ProductIDs = slices.Clone(o.ProductIDs)
		out = append(out, o)
	}
	return window(out, w, func(o crm.Order) (crm.SortValue, string) {
		return o.SortKey(w.Sort.Field), o.ID
	}), nil
}

func (s *Store) Stats(context.Context) (crm.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := crm.Stats{Customers: len(s.customers), Orders: len(s.orders)}
	for _, o := range s.orders {
		rev, err := st.Revenue.Add(o.TotalAmount)
		if err != nil {
			return crm.Stats{}, fmt.Errorf("sum revenue: %w", err)
		}
		st.Revenue = rev
	}
	return st, nil
}

func window[T any](rows []T, w crm.Window, key func(T) (crm.SortValue, string)) []T {
	sort.Slice(rows, func(i, j int) bool {
		av, aid := key(rows[i])
		bv, bid := key(rows[j])
		return w.Less(av, aid, bv, bid)
	})
	if w.Limit > 0 && len(rows) > w.Limit {
		rows = rows[:w.Limit]
	}
	return rows
}

func sortByCreated(ps []crm.Product) {
	sort.Slice(ps, func(i, j int) bool {
		if !ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].CreatedAt.Before(ps[j].CreatedAt)
		}
		return ps[i].ID < ps[j].ID
	})
}
