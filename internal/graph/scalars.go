package graph

import (
	"encoding/json"
	"fmt"

	"github.com/ariefcatur/go-crm-graphql/internal/crm"
)

// Decimal carries crm.Money through the schema's Decimal scalar.
type Decimal crm.Money

func (Decimal) ImplementsGraphQLType(name string) bool { return name == "Decimal" }

func (d *Decimal) UnmarshalGraphQL(input interface{}) error {
	var (
		m   crm.Money
		err error
	)
	switch v := input.(type) {
	case string:
		m, err = crm.ParseMoney(v)
	case int32:
		m = crm.Money(int64(v) * 100)
	case int:
		m = crm.Money(int64(v) * 100)
	case float64:
		m, err = crm.MoneyFromFloat(v)
	default:
		err = fmt.Errorf("%w: unsupported type %T", crm.ErrInvalidAmount, input)
	}
	if err != nil {
		return err
	}
	*d = Decimal(m)
	return nil
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(crm.Money(d).String())
}

func moneyPtr(d *Decimal) *crm.Money {
	if d == nil {
		return nil
	}
	m := crm.Money(*d)
	return &m
}
