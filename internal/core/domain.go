package core

import (
	"errors"
	"strings"
)

const (
	OilChange          ServiceCategory = "oil_change"
	BatteryReplacement ServiceCategory = "battery_replacement"
	BrakeSystem        ServiceCategory = "brake_system"
	Mechanical         ServiceCategory = "mechanical"
	OtherService       ServiceCategory = "other"
)

const (
	Cash     PaymentMethod = "cash"
	Card     PaymentMethod = "card"
	Transfer PaymentMethod = "transfer"
)

type (
	ServiceCategory string

	PaymentMethod string

	// Invoice is a billed service event for one customer visit.
	// JSON field names follow the ledger document format.
	Invoice struct {
		ID              string          `json:"id"`
		Date            Date            `json:"date"`
		Customer        string          `json:"customer"`
		Phone           string          `json:"phone"`
		Description     string          `json:"desc"`
		ServiceCategory ServiceCategory `json:"serviceCategory"`
		ServiceCost     Money           `json:"serviceCost"`
		PartsCost       Money           `json:"partsCost"`
		Paid            Money           `json:"paid"`
		Method          PaymentMethod   `json:"method"`
	}

	// Expense is an operating cost entry unrelated to a specific customer.
	Expense struct {
		ID       string `json:"id"`
		Date     Date   `json:"date"`
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
		Notes    string `json:"notes"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrEmptyCategory     = errors.New("empty expense category")
	ErrMissingParty      = errors.New("customer name or service description required")
	ErrInvalidCategory   = errors.New("invalid service category")
	ErrInvalidPayMethod  = errors.New("invalid payment method")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
)

func (c ServiceCategory) Valid() bool {
	switch c {
	case OilChange, BatteryReplacement, BrakeSystem, Mechanical, OtherService:
		return true
	default:
		return false
	}
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case Cash, Card, Transfer:
		return true
	default:
		return false
	}
}

// Total is the invoiced amount: service plus parts.
func (i Invoice) Total() Money {
	return Money{Fils: i.ServiceCost.Fils + i.PartsCost.Fils}
}

// Balance is what the customer still owes. Negative on over-payment;
// over-payment is representable, not an error.
func (i Invoice) Balance() Money {
	return Money{Fils: i.Total().Fils - i.Paid.Fils}
}

func (i Invoice) Validate() error {
	if strings.TrimSpace(i.Customer) == "" && strings.TrimSpace(i.Description) == "" {
		return ErrMissingParty
	}
	if len(i.Description) > 200 {
		return ErrDescriptionLength
	}
	if i.ServiceCost.Fils < 0 || i.PartsCost.Fils < 0 || i.Paid.Fils < 0 {
		return ErrNegativeAmount
	}
	if i.ServiceCategory != "" && !i.ServiceCategory.Valid() {
		return ErrInvalidCategory
	}
	if i.Method != "" && !i.Method.Valid() {
		return ErrInvalidPayMethod
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount.Fils <= 0 {
		return ErrInvalidAmount
	}
	if len(e.Notes) > 200 {
		return ErrDescriptionLength
	}
	return nil
}
