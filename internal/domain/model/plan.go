package model

import (
	"sort"

	"classifieds-marketplace/internal/domain"
)

// PremiumPlan is one row of the plan catalog: a term in days and its price in
// whole units of the local currency.
type PremiumPlan struct {
	Days   int   `json:"days" yaml:"days"`
	Amount int64 `json:"amount" yaml:"amount"`
}

// PlanCatalog maps term days to plans. It is configuration, loaded once.
type PlanCatalog struct {
	currency string
	byDays   map[int]PremiumPlan
}

// DefaultPlans is the published price table.
var DefaultPlans = []PremiumPlan{
	{Days: 5, Amount: 150},
	{Days: 7, Amount: 200},
	{Days: 10, Amount: 230},
	{Days: 13, Amount: 250},
	{Days: 15, Amount: 280},
	{Days: 20, Amount: 315},
	{Days: 25, Amount: 335},
	{Days: 30, Amount: 379},
}

// NewPlanCatalog validates and indexes plans. Duplicate day counts are rejected.
func NewPlanCatalog(currency string, plans []PremiumPlan) (*PlanCatalog, error) {
	if currency == "" || len(plans) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	c := &PlanCatalog{currency: currency, byDays: make(map[int]PremiumPlan, len(plans))}
	for _, p := range plans {
		if p.Days <= 0 || p.Amount <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		if _, dup := c.byDays[p.Days]; dup {
			return nil, domain.ErrInvalidArgument
		}
		c.byDays[p.Days] = p
	}
	return c, nil
}

// Lookup returns the plan for days or ErrInvalidPlan.
func (c *PlanCatalog) Lookup(days int) (PremiumPlan, error) {
	p, ok := c.byDays[days]
	if !ok {
		return PremiumPlan{}, domain.ErrInvalidPlan
	}
	return p, nil
}

func (c *PlanCatalog) Currency() string { return c.currency }

// All returns plans ordered by days.
func (c *PlanCatalog) All() []PremiumPlan {
	out := make([]PremiumPlan, 0, len(c.byDays))
	for _, p := range c.byDays {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Days < out[j].Days })
	return out
}
