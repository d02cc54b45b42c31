package httppresentation

import (
	"time"

	"github.com/shopspring/decimal"

	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	domcart "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	dompayment "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

// ---- requests

type orderLineRequest struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

type addressDTO struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a addressDTO) toDomain() domorder.Address {
	return domorder.Address{
		Name:       a.Name,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func addressFrom(a domorder.Address) addressDTO {
	return addressDTO{
		Name:       a.Name,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type placeOrderRequest struct {
	Items         []orderLineRequest `json:"items" validate:"dive"`
	Address       addressDTO         `json:"address"`
	ShippingFee   *decimal.Decimal   `json:"shippingFee,omitempty"`
	Tax           *decimal.Decimal   `json:"tax,omitempty"`
	PaymentMethod string             `json:"paymentMethod,omitempty"`
	GuestEmail    string             `json:"guestEmail,omitempty"`
	GuestName     string             `json:"guestName,omitempty"`
	GuestPhone    string             `json:"guestPhone,omitempty"`
}

type trackOrderRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int    `json:"quantity,omitempty" validate:"omitempty,min=1"`
}

type updateCartItemRequest struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type paymentIntentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// verifyPaymentRequest uses the field names the Razorpay checkout widget hands back.
type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	Signature        string `json:"razorpay_signature"`
}

type paymentFailedRequest struct {
	GatewayOrderID   string         `json:"razorpay_order_id" validate:"required"`
	GatewayPaymentID string         `json:"razorpay_payment_id,omitempty"`
	Error            map[string]any `json:"error,omitempty"`
}

type refundRequest struct {
	OrderID string           `json:"orderId" validate:"required"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

type createVariantRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
	SKU       string          `json:"sku" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock" validate:"min=0"`
}

type updateVariantRequest struct {
	Size  *string          `json:"size,omitempty"`
	Color *string          `json:"color,omitempty"`
	SKU   *string          `json:"sku,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
	Stock *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
}

// ---- responses

type variantSummaryDTO struct {
	ID    string          `json:"id"`
	Size  string          `json:"size"`
	Color string          `json:"color,omitempty"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
}

type productSummaryDTO struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type orderItemDTO struct {
	ProductID     string             `json:"productId"`
	VariantID     string             `json:"variantId"`
	Quantity      int                `json:"quantity"`
	PriceSnapshot decimal.Decimal    `json:"priceSnapshot"`
	Variant       *variantSummaryDTO `json:"variant,omitempty"`
	Product       *productSummaryDTO `json:"product,omitempty"`
}

type guestDTO struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type orderDTO struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	Guest          *guestDTO       `json:"guest,omitempty"`
	ContactEmail   string          `json:"contactEmail,omitempty"`
	Items          []orderItemDTO  `json:"items"`
	Address        addressDTO      `json:"address"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingFee    decimal.Decimal `json:"shippingFee"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Status         string          `json:"status"`
	PaymentStatus  string          `json:"paymentStatus"`
	PaymentMethod  string          `json:"paymentMethod"`
	GatewayOrderID string          `json:"gatewayOrderId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func orderFrom(o *domorder.Order) orderDTO {
	dto := orderDTO{
		ID:             o.ID,
		UserID:         o.UserID,
		ContactEmail:   o.ContactEmail,
		Items:          make([]orderItemDTO, 0, len(o.Items)),
		Address:        addressFrom(o.Address),
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
	}
	if o.Guest != nil {
		dto.Guest = &guestDTO{Email: o.Guest.Email, Name: o.Guest.Name, Phone: o.Guest.Phone}
	}
	for _, it := range o.Items {
		dto.Items = append(dto.Items, orderItemDTO{
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	return dto
}

// orderViewFrom renders an order with its populated variant and product summaries.
func orderViewFrom(v apporder.OrderView) orderDTO {
	dto := orderFrom(v.Order)
	if len(v.Items) != len(dto.Items) {
		return dto
	}
	for i, it := range v.Items {
		if it.Variant != nil {
			dto.Items[i].Variant = &variantSummaryDTO{
				ID: it.Variant.ID, Size: it.Variant.Size, Color: it.Variant.Color,
				SKU: it.Variant.SKU, Price: it.Variant.Price,
			}
		}
		if it.Product != nil {
			dto.Items[i].Product = &productSummaryDTO{ID: it.Product.ID, Title: it.Product.Title}
		}
	}
	return dto
}

func orderViewsFrom(vs []apporder.OrderView) []orderDTO {
	out := make([]orderDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, orderViewFrom(v))
	}
	return out
}

type paymentDTO struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"orderId"`
	Provider       string          `json:"provider"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	GatewayOrderID string          `json:"gatewayOrderId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func paymentFrom(p *dompayment.Payment) *paymentDTO {
	if p == nil {
		return nil
	}
	return &paymentDTO{
		ID:             p.ID,
		OrderID:        p.OrderID,
		Provider:       p.Provider,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         string(p.Status),
		GatewayOrderID: p.GatewayOrderID,
		CreatedAt:      p.CreatedAt,
	}
}

type placeOrderResponse struct {
	Order   orderDTO    `json:"order"`
	Payment *paymentDTO `json:"payment,omitempty"`
}

// paymentIntentResponse carries what the checkout widget needs to open the gateway form.
type paymentIntentResponse struct {
	KeyID          string   `json:"key"`
	GatewayOrderID string   `json:"razorpayOrderId"`
	Amount         int64    `json:"amount"`
	Currency       string   `json:"currency"`
	Receipt        string   `json:"receipt"`
	Order          orderDTO `json:"order"`
}

func intentFrom(res *apppayment.IntentResult) paymentIntentResponse {
	return paymentIntentResponse{
		KeyID:          res.KeyID,
		GatewayOrderID: res.GatewayOrderID,
		Amount:         res.Amount,
		Currency:       res.Currency,
		Receipt:        res.Receipt,
		Order:          orderFrom(res.Order),
	}
}

type webhookResponse struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

type variantDTO struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"productId"`
	Size         string          `json:"size"`
	Color        string          `json:"color,omitempty"`
	SKU          string          `json:"sku"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	Availability string          `json:"availability"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func variantFrom(v *variant.Variant) variantDTO {
	return variantDTO{
		ID:           v.ID,
		ProductID:    v.ProductID,
		Size:         v.Size,
		Color:        v.Color,
		SKU:          v.SKU,
		Price:        v.Price,
		Stock:        v.Stock,
		Availability: string(v.Availability),
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
	}
}

func variantsFrom(vs []*variant.Variant) []variantDTO {
	out := make([]variantDTO, 0, len(vs))
	for _, v := range vs {
		out = append(out, variantFrom(v))
	}
	return out
}

type deletedVariantDTO struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type cartItemDTO struct {
	ProductID     string          `json:"productId"`
	VariantID     string          `json:"variantId"`
	Quantity      int             `json:"quantity"`
	PriceSnapshot decimal.Decimal `json:"priceSnapshot"`
}

type cartDTO struct {
	UserID    string        `json:"userId"`
	Items     []cartItemDTO `json:"items"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func cartFrom(c *domcart.Cart) cartDTO {
	dto := cartDTO{UserID: c.UserID, Items: make([]cartItemDTO, 0, len(c.Items)), UpdatedAt: c.UpdatedAt}
	for _, it := range c.Items {
		dto.Items = append(dto.Items, cartItemDTO{
			ProductID:     it.ProductID,
			VariantID:     it.VariantID,
			Quantity:      it.Quantity,
			PriceSnapshot: it.PriceSnapshot,
		})
	}
	return dto
}
