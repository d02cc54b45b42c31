package cart

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

const (
	cartService       = "cart-service"
	useCaseCartGet    = "cart.get"
	useCaseCartAdd    = "cart.add"
	useCaseCartSet    = "cart.update"
	useCaseCartRemove = "cart.remove"
)

type UseCases struct {
	store application.Store
	ids   application.IDGenerator
	inst  *application.Instrument
}

func NewUseCases(store application.Store, ids application.IDGenerator, tel observability.Observability) *UseCases {
	return &UseCases{
		store: store,
		ids:   ids,
		inst:  application.NewInstrument(tel, cartService),
	}
}

// Get returns the caller's cart, or an empty one when none has been created yet.
func (uc *UseCases) Get(ctx context.Context, actor *auth.Identity) (_ *domain.Cart, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseCartGet, "GetCart")
	defer func() { call.End(err) }()

	if actor == nil || actor.UserID == "" {
		call.Fail("UNAUTHENTICATED")
		return nil, apperr.Unauthorized("authentication required")
	}
	c, gerr := uc.store.Repositories().Carts.Get(ctx, actor.UserID)
	switch {
	case errors.Is(gerr, domain.ErrNotFound):
		return domain.New(actor.UserID), nil
	case gerr != nil:
		call.Fail("REPO_GET_FAILED")
		return nil, apperr.Internal("cart repository failure", gerr)
	}
	call.Field("items", len(c.Items))
	return c, nil
}

type AddItemInput struct {
	Actor     *auth.Identity
	ProductID string
	VariantID string
	Quantity  int
}

// AddItem resolves the effective variant, checks stock for the resulting cart quantity
// and merges the line into the cart.
func (uc *UseCases) AddItem(ctx context.Context, cmd AddItemInput) (_ *domain.Cart, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseCartAdd, "AddCartItem",
		attribute.String("cart.product_id", cmd.ProductID),
		attribute.String("cart.variant_id", cmd.VariantID),
	)
	defer func() { call.End(err) }()

	if cmd.Actor == nil || cmd.Actor.UserID == "" {
		call.Fail("UNAUTHENTICATED")
		return nil, apperr.Unauthorized("authentication required")
	}
	if strings.TrimSpace(cmd.ProductID) == "" {
		call.Fail("PRODUCT_ID_REQUIRED")
		return nil, apperr.Validation("product id is required", "productId")
	}
	if cmd.Quantity < 1 {
		call.Fail("QUANTITY_INVALID")
		return nil, apperr.Validation("quantity must be at least 1", "quantity")
	}

	v, rerr := uc.resolveVariant(ctx, cmd.ProductID, cmd.VariantID)
	if rerr != nil {
		call.Fail("VARIANT_RESOLVE_FAILED")
		return nil, rerr
	}
	call.Field("variant_id", v.ID)

	var saved *domain.Cart
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		c, err := loadOrNew(ctx, repos, cmd.Actor.UserID)
		if err != nil {
			return err
		}
		existing, _ := c.Find(v.ID)
		want := existing.Quantity + cmd.Quantity
		if !v.CanCover(want) {
			call.Fail("INSUFFICIENT_STOCK")
			return &variant.InsufficientStockError{VariantID: v.ID, SKU: v.SKU, Requested: want, Available: v.Stock}
		}
		if err := c.Add(v.ProductID, v.ID, cmd.Quantity, v.Price); err != nil {
			call.Fail("QUANTITY_INVALID")
			return apperr.Wrap(apperr.KindValidation, "cart", err)
		}
		if err := repos.Carts.Save(ctx, c); err != nil {
			call.Fail("REPO_SAVE_FAILED")
			return apperr.Internal("cart repository failure", err)
		}
		saved = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

type UpdateItemInput struct {
	Actor     *auth.Identity
	VariantID string
	Quantity  int
}

// UpdateItem sets an item's quantity; zero or less removes it.
func (uc *UseCases) UpdateItem(ctx context.Context, cmd UpdateItemInput) (_ *domain.Cart, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseCartSet, "UpdateCartItem",
		attribute.String("cart.variant_id", cmd.VariantID),
		attribute.Int("cart.quantity", cmd.Quantity),
	)
	defer func() { call.End(err) }()

	if cmd.Actor == nil || cmd.Actor.UserID == "" {
		call.Fail("UNAUTHENTICATED")
		return nil, apperr.Unauthorized("authentication required")
	}
	if strings.TrimSpace(cmd.VariantID) == "" {
		call.Fail("VARIANT_ID_REQUIRED")
		return nil, apperr.Validation("variant id is required", "variantId")
	}

	var saved *domain.Cart
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		c, err := repos.Carts.Get(ctx, cmd.Actor.UserID)
		if err != nil {
			call.Fail("CART_NOT_FOUND")
			if errors.Is(err, domain.ErrNotFound) {
				return apperr.NotFound("cart item not found", domain.ErrItemNotFound)
			}
			return apperr.Internal("cart repository failure", err)
		}
		if _, ok := c.Find(cmd.VariantID); !ok {
			call.Fail("ITEM_NOT_FOUND")
			return apperr.NotFound("cart item not found", domain.ErrItemNotFound)
		}
		if cmd.Quantity <= 0 {
			c.Remove(cmd.VariantID)
		} else {
			v, err := repos.Variants.Get(ctx, cmd.VariantID)
			if err != nil {
				call.Fail("VARIANT_LOAD_FAILED")
				return variantError(err)
			}
			if !v.CanCover(cmd.Quantity) {
				call.Fail("INSUFFICIENT_STOCK")
				return &variant.InsufficientStockError{VariantID: v.ID, SKU: v.SKU, Requested: cmd.Quantity, Available: v.Stock}
			}
			if err := c.SetQuantity(v.ID, cmd.Quantity, v.Price); err != nil {
				call.Fail("ITEM_NOT_FOUND")
				return apperr.NotFound("cart item not found", err)
			}
		}
		if err := repos.Carts.Save(ctx, c); err != nil {
			call.Fail("REPO_SAVE_FAILED")
			return apperr.Internal("cart repository failure", err)
		}
		saved = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// RemoveItem drops a line; removing something that is not there still succeeds.
func (uc *UseCases) RemoveItem(ctx context.Context, actor *auth.Identity, variantID string) (_ *domain.Cart, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseCartRemove, "RemoveCartItem",
		attribute.String("cart.variant_id", variantID),
	)
	defer func() { call.End(err) }()

	if actor == nil || actor.UserID == "" {
		call.Fail("UNAUTHENTICATED")
		return nil, apperr.Unauthorized("authentication required")
	}

	var saved *domain.Cart
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		c, err := repos.Carts.Get(ctx, actor.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			saved = domain.New(actor.UserID)
			return nil
		}
		if err != nil {
			call.Fail("REPO_GET_FAILED")
			return apperr.Internal("cart repository failure", err)
		}
		c.Remove(variantID)
		if err := repos.Carts.Save(ctx, c); err != nil {
			call.Fail("REPO_SAVE_FAILED")
			return apperr.Internal("cart repository failure", err)
		}
		saved = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// resolveVariant picks the variant a cart line refers to: the named one, else the best
// in-stock variant of the product, else an implicit one-size variant for a product that
// has never had variants.
func (uc *UseCases) resolveVariant(ctx context.Context, productID, variantID string) (*variant.Variant, error) {
	repos := uc.store.Repositories()

	if strings.TrimSpace(variantID) != "" {
		v, err := repos.Variants.Get(ctx, variantID)
		if err != nil {
			return nil, variantError(err)
		}
		if v.ProductID != productID {
			return nil, apperr.Validation("variant does not belong to product", "variantId")
		}
		return v, nil
	}

	vs, err := repos.Variants.ListByProduct(ctx, productID)
	if err != nil {
		return nil, apperr.Internal("variant repository failure", err)
	}
	if best := variant.BestInStock(vs); best != nil {
		return best, nil
	}
	if len(vs) > 0 {
		return nil, &variant.InsufficientStockError{VariantID: vs[0].ID, SKU: vs[0].SKU, Requested: 1, Available: 0}
	}
	return uc.provisionDefault(ctx, repos, productID)
}

// provisionDefault creates the one-size variant from the product record. When two callers
// race, the unique index decides and the loser continues with the winner's row.
func (uc *UseCases) provisionDefault(ctx context.Context, repos application.Repositories, productID string) (*variant.Variant, error) {
	p, err := repos.Products.Get(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, apperr.NotFound("product not found", err)
		}
		return nil, apperr.Internal("product repository failure", err)
	}
	sku := defaultSKU(p.ID)
	v, err := variant.New(uc.ids.NewID(), p.ID, variant.DefaultSize, "", sku, p.Price, max(p.Stock, 0))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "variant", err)
	}
	if err := repos.Variants.Insert(ctx, v); err != nil {
		if !errors.Is(err, variant.ErrConflict) {
			return nil, apperr.Internal("variant repository failure", err)
		}
		vs, lerr := repos.Variants.ListByProduct(ctx, p.ID)
		if lerr != nil {
			return nil, apperr.Internal("variant repository failure", lerr)
		}
		for _, existing := range vs {
			if existing.Size == variant.DefaultSize && existing.Color == "" {
				return existing, nil
			}
		}
		if len(vs) > 0 {
			return vs[0], nil
		}
		return nil, apperr.Conflict("variant already exists", err)
	}
	return v, nil
}

func defaultSKU(productID string) string {
	return variant.NormalizeSKU(productID + "-ONESIZE")
}

func loadOrNew(ctx context.Context, repos application.Repositories, userID string) (*domain.Cart, error) {
	c, err := repos.Carts.Get(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.New(userID), nil
	case err != nil:
		return nil, apperr.Internal("cart repository failure", err)
	}
	return c, nil
}

func variantError(err error) error {
	if errors.Is(err, variant.ErrNotFound) {
		return apperr.NotFound("variant not found", err)
	}
	return apperr.Internal("variant repository failure", err)
}
