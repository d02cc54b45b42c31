package order

import (
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound               = errors.New("order: not found")
	ErrConflict               = errors.New("order: conflict")
	ErrInvalidQuantity        = errors.New("order: quantity must be greater than zero")
	ErrInvalidAmount          = errors.New("order: amount must be zero or greater")
	ErrNoItems                = errors.New("order: items are required")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrInvalidStatus          = errors.New("order: unknown status")
	ErrInvalidPaymentMethod   = errors.New("order: invalid payment method")
	ErrInvalidEmail           = errors.New("order: invalid email")
)

type Status string

const (
	StatusCreated   Status = "Created"
	StatusPaid      Status = "Paid"
	StatusPacked    Status = "Packed"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentFailed   PaymentStatus = "Failed"
	PaymentRefunded PaymentStatus = "Refunded"
)

type PaymentMethod string

const (
	MethodCOD      PaymentMethod = "COD"
	MethodRazorpay PaymentMethod = "Razorpay"
)

// ParsePaymentMethod accepts the request tag case-insensitively; empty means COD.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "COD":
		return MethodCOD, nil
	case "RAZORPAY":
		return MethodRazorpay, nil
	default:
		return "", ErrInvalidPaymentMethod
	}
}

// IsGateway reports whether settlement goes through an external payment gateway.
func (m PaymentMethod) IsGateway() bool { return m != MethodCOD }

type Item struct {
	ProductID     string
	VariantID     string
	Quantity      int
	PriceSnapshot decimal.Decimal
}

// LineTotal is the snapshot price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.PriceSnapshot.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Address struct {
	Name       string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Missing lists the required address fields that are blank, using their wire names.
func (a Address) Missing() []string {
	required := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"phone", a.Phone},
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postalCode", a.PostalCode},
		{"country", a.Country},
	}
	var missing []string
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

type GuestContact struct {
	Email string
	Name  string
	Phone string
}

// ValidateEmail checks the syntax of a contact address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}

type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals sums line totals and adds pass-through fee and tax.
func ComputeTotals(items []Item, shippingFee, tax decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shippingFee,
		Tax:         tax,
		Total:       subtotal.Add(shippingFee).Add(tax),
	}
}

type Order struct {
	ID             string
	UserID         string
	Guest          *GuestContact
	ContactEmail   string
	Items          []Item
	Address        Address
	Subtotal       decimal.Decimal
	ShippingFee    decimal.Decimal
	Tax            decimal.Decimal
	Total          decimal.Decimal
	Status         Status
	PaymentStatus  PaymentStatus
	PaymentMethod  PaymentMethod
	GatewayOrderID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type NewOrderParams struct {
	ID            string
	UserID        string
	Guest         *GuestContact
	ContactEmail  string
	Items         []Item
	Address       Address
	ShippingFee   decimal.Decimal
	Tax           decimal.Decimal
	PaymentMethod PaymentMethod
}

// New builds an order in Created/Pending with totals fixed from the item snapshots.
func New(p NewOrderParams) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range p.Items {
		if it.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if it.PriceSnapshot.IsNegative() {
			return nil, ErrInvalidAmount
		}
	}
	if p.ShippingFee.IsNegative() || p.Tax.IsNegative() {
		return nil, ErrInvalidAmount
	}
	if p.PaymentMethod != MethodCOD && p.PaymentMethod != MethodRazorpay {
		return nil, ErrInvalidPaymentMethod
	}

	totals := ComputeTotals(p.Items, p.ShippingFee, p.Tax)
	now := time.Now().UTC()
	o := &Order{
		ID:            p.ID,
		UserID:        p.UserID,
		ContactEmail:  p.ContactEmail,
		Items:         append([]Item(nil), p.Items...),
		Address:       p.Address,
		Subtotal:      totals.Subtotal,
		ShippingFee:   totals.ShippingFee,
		Tax:           totals.Tax,
		Total:         totals.Total,
		Status:        StatusCreated,
		PaymentStatus: PaymentPending,
		PaymentMethod: p.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Guest != nil {
		g := *p.Guest
		o.Guest = &g
	}
	return o, nil
}

// IsGuest reports whether the order was placed without an account.
func (o *Order) IsGuest() bool { return o.UserID == "" }

// MatchesGuestEmail compares against the stored guest contact, case-insensitively.
func (o *Order) MatchesGuestEmail(email string) bool {
	if o == nil || o.Guest == nil || o.Guest.Email == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(o.Guest.Email), strings.TrimSpace(email))
}

// VisibleTo reports whether userID owns the order.
func (o *Order) VisibleTo(userID string) bool {
	return o != nil && userID != "" && o.UserID == userID
}

// VisibleToAdmin is the admin listing rule: cash orders, or gateway orders that settled.
func (o *Order) VisibleToAdmin() bool {
	return o.PaymentMethod == MethodCOD || o.PaymentStatus == PaymentPaid
}

func (o *Order) AttachGatewayOrder(gatewayOrderID string) {
	o.GatewayOrderID = gatewayOrderID
	o.touch()
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Items = append([]Item(nil), o.Items...)
	if o.Guest != nil {
		g := *o.Guest
		clone.Guest = &g
	}
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
