package crm

import (
	"cmp"
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SortField string

const (
	SortCreatedAt   SortField = "createdAt"
	SortName        SortField = "name"
	SortEmail       SortField = "email"
	SortPrice       SortField = "price"
	SortStock       SortField = "stock"
	SortOrderDate   SortField = "orderDate"
	SortTotalAmount SortField = "totalAmount"
)

var (
	customerSorts = sortSet(SortName, SortEmail, SortCreatedAt)
	productSorts  = sortSet(SortName, SortPrice, SortStock, SortCreatedAt)
	orderSorts    = sortSet(SortOrderDate, SortTotalAmount, SortCreatedAt)
)

func sortSet(fields ...SortField) map[string]SortField {
	m := make(map[string]SortField, len(fields))
	for _, f := range fields {
		m[normalizeSortName(string(f))] = f
	}
	return m
}

// normalizeSortName lets "created_at", "createdAt" and "CREATEDAT" all name
// the same field.
func normalizeSortName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}

// Sort is a keyset ordering: the field first, then id as tiebreaker, both in
// the same direction.
type Sort struct {
	Field SortField
	Desc  bool
}

func (s Sort) String() string {
	if s.Desc {
		return "-" + string(s.Field)
	}
	return string(s.Field)
}

func parseSort(orderBy string, allowed map[string]SortField) (Sort, error) {
	orderBy = strings.TrimSpace(orderBy)
	if orderBy == "" {
		return Sort{Field: SortCreatedAt}, nil
	}
	desc := strings.HasPrefix(orderBy, "-")
	name := strings.TrimPrefix(orderBy, "-")
	f, ok := allowed[normalizeSortName(name)]
	if !ok {
		return Sort{}, invalid("orderBy", "cannot order by "+strconv.Quote(name))
	}
	return Sort{Field: f, Desc: desc}, nil
}

type ValueKind int

const (
	KindText ValueKind = iota
	KindTime
	KindInt
)

func (f SortField) Kind() ValueKind {
	switch f {
	case SortName, SortEmail:
		return KindText
	case SortPrice, SortStock, SortTotalAmount:
		return KindInt
	default:
		return KindTime
	}
}

// SortValue is the typed value of a record's sort field.
type SortValue struct {
	Kind ValueKind
	Text string
	Time time.Time
	Int  int64
}

func TextValue(s string) SortValue    { return SortValue{Kind: KindText, Text: s} }
func TimeValue(t time.Time) SortValue { return SortValue{Kind: KindTime, Time: t.UTC()} }
func IntValue(i int64) SortValue      { return SortValue{Kind: KindInt, Int: i} }

func (v SortValue) Compare(o SortValue) int {
	switch v.Kind {
	case KindText:
		return strings.Compare(v.Text, o.Text)
	case KindInt:
		return cmp.Compare(v.Int, o.Int)
	default:
		return v.Time.Compare(o.Time)
	}
}

// Arg is the value bound into a SQL keyset predicate.
func (v SortValue) Arg() any {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindInt:
		return v.Int
	default:
		return v.Time
	}
}

func (v SortValue) encode() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	default:
		return v.Time.Format(time.RFC3339Nano)
	}
}

func decodeSortValue(kind ValueKind, s string) (SortValue, error) {
	switch kind {
	case KindText:
		return TextValue(s), nil
	case KindInt:
		i, err := strconv.ParseInt(s, 10, 64)
		return IntValue(i), err
	default:
		t, err := time.Parse(time.RFC3339Nano, s)
		return TimeValue(t), err
	}
}

func (c Customer) SortKey(f SortField) SortValue {
	switch f {
	case SortName:
		return TextValue(c.Name)
	case SortEmail:
		return TextValue(c.Email)
	default:
		return TimeValue(c.CreatedAt)
	}
}

func (p Product) SortKey(f SortField) SortValue {
	switch f {
	case SortName:
		return TextValue(p.Name)
	case SortPrice:
		return IntValue(int64(p.Price))
	case SortStock:
		return IntValue(int64(p.Stock))
	default:
		return TimeValue(p.CreatedAt)
	}
}

func (o Order) SortKey(f SortField) SortValue {
	switch f {
	case SortOrderDate:
		return TimeValue(o.OrderDate)
	case SortTotalAmount:
		return IntValue(int64(o.TotalAmount))
	default:
		return TimeValue(o.CreatedAt)
	}
}

// Cursor marks a position in a keyset ordering. It is opaque to clients.
type Cursor struct {
	Sort  Sort
	Value SortValue
	ID    string
}

type cursorWire struct {
	S string `json:"s"`
	V string `json:"v"`
	I string `json:"i"`
}

func (c Cursor) Encode() string {
	b, _ := json.Marshal(cursorWire{S: c.Sort.String(), V: c.Value.encode(), I: c.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string, sort Sort) (*Cursor, error) {
	bad := invalid("after", "invalid cursor")
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, bad
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil || w.I == "" {
		return nil, bad
	}
	if w.S != sort.String() {
		return nil, invalid("after", "cursor belongs to a different ordering")
	}
	v, err := decodeSortValue(sort.Field.Kind(), w.V)
	if err != nil {
		return nil, bad
	}
	return &Cursor{Sort: sort, Value: v, ID: w.I}, nil
}

// Window is what a store needs to fetch one page: ordering, the position to
// start after and how many rows to return.
type Window struct {
	Sort  Sort
	After *Cursor
	Limit int
}

// Passes reports whether a record with key (v, id) sorts strictly after
// the cursor position in window order.
func (w Window) Passes(v SortValue, id string) bool {
	if w.After == nil {
		return true
	}
	c := v.Compare(w.After.Value)
	if c == 0 {
		c = strings.Compare(id, w.After.ID)
	}
	if w.Sort.Desc {
		return c < 0
	}
	return c > 0
}

// Less orders two records in window order.
func (w Window) Less(av SortValue, aid string, bv SortValue, bid string) bool {
	c := av.Compare(bv)
	if c == 0 {
		c = strings.Compare(aid, bid)
	}
	if w.Sort.Desc {
		return c > 0
	}
	return c < 0
}

type PageArgs struct {
	First   *int
	After   string
	OrderBy string
}

type Edge[T any] struct {
	Cursor string
	Node   T
}

type Page[T any] struct {
	Edges           []Edge[T]
	HasNextPage     bool
	HasPreviousPage bool
}

func (p Page[T]) StartCursor() string {
	if len(p.Edges) == 0 {
		return ""
	}
	return p.Edges[0].Cursor
}

func (p Page[T]) EndCursor() string {
	if len(p.Edges) == 0 {
		return ""
	}
	return p.Edges[len(p.Edges)-1].Cursor
}

func (p Page[T]) Nodes() []T {
	out := make([]T, 0, len(p.Edges))
	for _, e := range p.Edges {
		out = append(out, e.Node)
	}
	return out
}

func newWindow(args PageArgs, allowed map[string]SortField) (Window, int, error) {
	size := DefaultPageSize
	if args.First != nil {
		size = *args.First
	}
	if size < 1 || size > MaxPageSize {
		return Window{}, 0, invalid("first", "must be between 1 and "+strconv.Itoa(MaxPageSize))
	}
	sort, err := parseSort(args.OrderBy, allowed)
	if err != nil {
		return Window{}, 0, err
	}
	w := Window{Sort: sort, Limit: size + 1}
	if args.After != "" {
		if w.After, err = decodeCursor(args.After, sort); err != nil {
			return Window{}, 0, err
		}
	}
	return w, size, nil
}

// buildPage trims the look-ahead row and assigns cursors.
func buildPage[T any](rows []T, size int, w Window, key func(T) (SortValue, string)) Page[T] {
	p := Page[T]{HasPreviousPage: w.After != nil}
	if len(rows) > size {
		rows = rows[:size]
		p.HasNextPage = true
	}
	p.Edges = make([]Edge[T], 0, len(rows))
	for _, r := range rows {
		v, id := key(r)
		p.Edges = append(p.Edges, Edge[T]{
			Cursor: Cursor{Sort: w.Sort, Value: v, ID: id}.Encode(),
			Node:   r,
		})
	}
	return p
}
