package crm

import (
	"strings"
	"time"
)

// Text filters match case-insensitive substrings; range bounds are inclusive.
// Zero values mean "no filter".

type CustomerFilter struct {
	Name         string
	Email        string
	CreatedAtGte *time.Time
	CreatedAtLte *time.Time
	// PhonePrefix keeps customers whose phone starts with it.
	PhonePrefix string
}

func (f CustomerFilter) Match(c Customer) bool {
	return containsFold(c.Name, f.Name) &&
		containsFold(c.Email, f.Email) &&
		inTimeRange(c.CreatedAt, f.CreatedAtGte, f.CreatedAtLte) &&
		strings.HasPrefix(c.Phone, f.PhonePrefix)
}

type ProductFilter struct {
	Name     string
	PriceGte *Money
	PriceLte *Money
	StockGte *int
	StockLte *int
	// LowStock keeps products with stock below DefaultLowStockThreshold.
	LowStock bool
}

func (f ProductFilter) Match(p Product) bool {
	if f.LowStock && p.Stock >= DefaultLowStockThreshold {
		return false
	}
	return containsFold(p.Name, f.Name) &&
		inRange(p.Price, f.PriceGte, f.PriceLte) &&
		inRange(p.Stock, f.StockGte, f.StockLte)
}

type OrderFilter struct {
	CustomerID   string
	CustomerName string
	ProductName  string
	ProductID    string
	TotalGte     *Money
	TotalLte     *Money
	OrderDateGte *time.Time
	OrderDateLte *time.Time
}

// Match needs the order's customer and products because the name filters
// follow the relations.
func (f OrderFilter) Match(o Order, customer Customer, products []Product) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if !containsFold(customer.Name, f.CustomerName) {
		return false
	}
	if !inRange(o.TotalAmount, f.TotalGte, f.TotalLte) || !inTimeRange(o.OrderDate, f.OrderDateGte, f.OrderDateLte) {
		return false
	}
	if f.ProductID != "" && !contains(o.ProductIDs, f.ProductID) {
		return false
	}
	if f.ProductName != "" {
		for _, p := range products {
			if containsFold(p.Name, f.ProductName) {
				return true
			}
		}
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func inRange[T Money | int](v T, gte, lte *T) bool {
	return (gte == nil || v >= *gte) && (lte == nil || v <= *lte)
}

func inTimeRange(t time.Time, gte, lte *time.Time) bool {
	return (gte == nil || !t.Before(*gte)) && (lte == nil || !t.After(*lte))
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
