package postgres

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

type variantRow struct {
	ID           string          `gorm:"primaryKey;size:64"`
	ProductID    string          `gorm:"size:64;not null;index;uniqueIndex:ux_variants_tuple"`
	Size         string          `gorm:"size:64;not null;uniqueIndex:ux_variants_tuple"`
	Color        string          `gorm:"size:64;not null;default:'';uniqueIndex:ux_variants_tuple"`
	SKU          string          `gorm:"column:sku;size:128;not null;uniqueIndex"`
	Price        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock        int             `gorm:"not null;check:stock >= 0"`
	Availability string          `gorm:"size:16;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (variantRow) TableName() string { return "variants" }

func variantToRow(v *variant.Variant) *variantRow {
	return &variantRow{
		ID:           v.ID,
		ProductID:    v.ProductID,
		Size:         v.Size,
		Color:        v.Color,
		SKU:          variant.NormalizeSKU(v.SKU),
		Price:        v.Price,
		Stock:        v.Stock,
		Availability: string(variant.AvailabilityFor(v.Stock)),
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func (r *variantRow) toDomain() *variant.Variant {
	return &variant.Variant{
		ID:           r.ID,
		ProductID:    r.ProductID,
		Size:         r.Size,
		Color:        r.Color,
		SKU:          r.SKU,
		Price:        r.Price,
		Stock:        r.Stock,
		Availability: variant.Availability(r.Availability),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type lineJSON struct {
	ProductID     string          `json:"productId"`
	VariantID     string          `json:"variantId"`
	Quantity      int             `json:"quantity"`
	PriceSnapshot decimal.Decimal `json:"priceSnapshot"`
}

type addressJSON struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type guestJSON struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type orderRow struct {
	ID             string          `gorm:"primaryKey;size:64"`
	UserID         string          `gorm:"size:64;index"`
	Guest          *guestJSON      `gorm:"serializer:json;type:jsonb"`
	ContactEmail   string          `gorm:"size:320"`
	Items          []lineJSON      `gorm:"serializer:json;type:jsonb;not null"`
	Address        addressJSON     `gorm:"serializer:json;type:jsonb;not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	ShippingFee    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Tax            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status         string          `gorm:"size:16;not null;index"`
	PaymentStatus  string          `gorm:"size:16;not null"`
	PaymentMethod  string          `gorm:"size:16;not null"`
	GatewayOrderID string          `gorm:"size:64;index"`
	CreatedAt      time.Time       `gorm:"index"`
	UpdatedAt      time.Time
}

func (orderRow) TableName() string { return "orders" }

func orderToRow(o *order.Order) *orderRow {
	row := &orderRow{
		ID:             o.ID,
		UserID:         o.UserID,
		ContactEmail:   o.ContactEmail,
		Items:          make([]lineJSON, 0, len(o.Items)),
		Subtotal:       o.Subtotal,
		ShippingFee:    o.ShippingFee,
		Tax:            o.Tax,
		Total:          o.Total,
		Status:         string(o.Status),
		PaymentStatus:  string(o.PaymentStatus),
		PaymentMethod:  string(o.PaymentMethod),
		GatewayOrderID: o.GatewayOrderID,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
		Address: addressJSON{
			Name:       o.Address.Name,
			Phone:      o.Address.Phone,
			Line1:      o.Address.Line1,
			Line2:      o.Address.Line2,
			City:       o.Address.City,
			State:      o.Address.State,
			PostalCode: o.Address.PostalCode,
			Country:    o.Address.Country,
		},
	}
	for _, it := range o.Items {
		row.Items = append(row.Items, lineJSON{
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	if o.Guest != nil {
		row.Guest = &guestJSON{Email: o.Guest.Email, Name: o.Guest.Name, Phone: o.Guest.Phone}
	}
	return row
}

func (r *orderRow) toDomain() *order.Order {
	o := &order.Order{
		ID:             r.ID,
		UserID:         r.UserID,
		ContactEmail:   r.ContactEmail,
		Items:          make([]order.Item, 0, len(r.Items)),
		Subtotal:       r.Subtotal,
		ShippingFee:    r.ShippingFee,
		Tax:            r.Tax,
		Total:          r.Total,
		Status:         order.Status(r.Status),
		PaymentStatus:  order.PaymentStatus(r.PaymentStatus),
		PaymentMethod:  order.PaymentMethod(r.PaymentMethod),
		GatewayOrderID: r.GatewayOrderID,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Address: order.Address{
			Name:       r.Address.Name,
			Phone:      r.Address.Phone,
			Line1:      r.Address.Line1,
			Line2:      r.Address.Line2,
			City:       r.Address.City,
			State:      r.Address.State,
			PostalCode: r.Address.PostalCode,
			Country:    r.Address.Country,
		},
	}
	for _, it := range r.Items {
		o.Items = append(o.Items, order.Item{
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	if r.Guest != nil {
		o.Guest = &order.GuestContact{Email: r.Guest.Email, Name: r.Guest.Name, Phone: r.Guest.Phone}
	}
	return o
}

type cartRow struct {
	UserID    string     `gorm:"primaryKey;size:64"`
	Items     []lineJSON `gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cartRow) TableName() string { return "carts" }

func cartToRow(c *cart.Cart) *cartRow {
	row := &cartRow{UserID: c.UserID, Items: make([]lineJSON, 0, len(c.Items)), CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	for _, it := range c.Items {
		row.Items = append(row.Items, lineJSON{
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	return row
}

func (r *cartRow) toDomain() *cart.Cart {
	c := &cart.Cart{UserID: r.UserID, Items: make([]cart.Item, 0, len(r.Items)), CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	for _, it := range r.Items {
		c.Items = append(c.Items, cart.Item{
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	return c
}

type paymentRow struct {
	ID               string          `gorm:"primaryKey;size:64"`
	OrderID          string          `gorm:"size:64;not null;uniqueIndex"`
	Provider         string          `gorm:"size:32;not null"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency         string          `gorm:"size:8;not null"`
	Status           string          `gorm:"size:16;not null"`
	GatewayOrderID   string          `gorm:"size:64;index"`
	GatewayPaymentID string          `gorm:"size:64;index"`
	Signature        string          `gorm:"size:256"`
	RawPayload       json.RawMessage `gorm:"type:jsonb"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (paymentRow) TableName() string { return "payments" }

func paymentToRow(p *payment.Payment) *paymentRow {
	return &paymentRow{
		ID:               p.ID,
		OrderID:          p.OrderID,
		Provider:         p.Provider,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           string(p.Status),
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Signature:        p.Signature,
		RawPayload:       p.RawPayload,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func (r *paymentRow) toDomain() *payment.Payment {
	return &payment.Payment{
		ID:               r.ID,
		OrderID:          r.OrderID,
		Provider:         r.Provider,
		Amount:           r.Amount,
		Currency:         r.Currency,
		Status:           payment.Status(r.Status),
		GatewayOrderID:   r.GatewayOrderID,
		GatewayPaymentID: r.GatewayPaymentID,
		Signature:        r.Signature,
		RawPayload:       r.RawPayload,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

type productRow struct {
	ID     string          `gorm:"primaryKey;size:64"`
	Title  string          `gorm:"size:255;not null"`
	Brand  string          `gorm:"size:255"`
	Price  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock  int             `gorm:"not null"`
	Status string          `gorm:"size:16;not null"`
}

func (productRow) TableName() string { return "products" }

func (r *productRow) toDomain() *product.Product {
	return &product.Product{
		ID:     r.ID,
		Title:  r.Title,
		Brand:  r.Brand,
		Price:  r.Price,
		Stock:  r.Stock,
		Status: product.Status(r.Status),
	}
}
