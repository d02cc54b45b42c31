package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/product"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

const (
	inventoryService     = "inventory-service"
	useCaseVariantCreate = "variant.create"
	useCaseVariantUpdate = "variant.update"
	useCaseVariantDelete = "variant.delete"
	useCaseVariantList   = "variant.list"
)

// VariantUseCases are the admin operations on variants. Every committed stock change is
// published as a variant.stock_changed event.
type VariantUseCases struct {
	store     application.Store
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	inst      *application.Instrument
}

func NewVariantUseCases(
	store application.Store,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *VariantUseCases {
	return &VariantUseCases{
		store:     store,
		ids:       ids,
		publisher: publisher,
		inst:      application.NewInstrument(tel, inventoryService),
	}
}

type CreateVariantInput struct {
	ProductID string
	Size      string
	Color     string
	SKU       string
	Price     decimal.Decimal
	Stock     int
}

func (uc *VariantUseCases) Create(ctx context.Context, cmd CreateVariantInput) (_ *variant.Variant, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseVariantCreate, "CreateVariant",
		attribute.String("variant.product_id", cmd.ProductID),
		attribute.String("variant.sku", cmd.SKU),
	)
	defer func() { call.End(err) }()

	if strings.TrimSpace(cmd.ProductID) == "" {
		call.Fail("PRODUCT_ID_REQUIRED")
		return nil, apperr.Validation("product id is required", "productId")
	}
	repos := uc.store.Repositories()
	if _, err := repos.Products.Get(ctx, cmd.ProductID); err != nil {
		call.Fail("PRODUCT_LOAD_FAILED")
		return nil, wrapRepositoryError("product", err)
	}

	size := cmd.Size
	if strings.TrimSpace(size) == "" {
		size = variant.DefaultSize
	}
	v, derr := variant.New(uc.ids.NewID(), cmd.ProductID, size, cmd.Color, cmd.SKU, cmd.Price, cmd.Stock)
	if derr != nil {
		call.Fail("DOMAIN_CONSTRUCTION_FAILED")
		return nil, apperr.Wrap(apperr.KindValidation, "variant", derr)
	}
	if err := repos.Variants.Insert(ctx, v); err != nil {
		call.Fail("REPO_INSERT_FAILED")
		return nil, wrapRepositoryError("variant", err)
	}
	call.Field("variant_id", v.ID)

	_ = uc.inst.Publish(ctx, uc.publisher, variant.NewStockChangedEvent(v))
	return v, nil
}

// UpdateVariantInput changes only the fields that are set.
type UpdateVariantInput struct {
	ID    string
	Size  *string
	Color *string
	SKU   *string
	Price *decimal.Decimal
	Stock *int
}

func (uc *VariantUseCases) Update(ctx context.Context, cmd UpdateVariantInput) (_ *variant.Variant, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseVariantUpdate, "UpdateVariant",
		attribute.String("variant.id", cmd.ID),
	)
	defer func() { call.End(err) }()
	call.Field("variant_id", cmd.ID)

	var updated *variant.Variant
	err = uc.store.Atomic(ctx, func(ctx context.Context, repos application.Repositories) error {
		found, err := repos.Variants.FindByIDs(ctx, []string{cmd.ID})
		if err != nil {
			call.Fail("REPO_GET_FAILED")
			return wrapRepositoryError("variant", err)
		}
		if len(found) == 0 {
			call.Fail("VARIANT_NOT_FOUND")
			return apperr.NotFound("variant "+cmd.ID, variant.ErrNotFound)
		}
		v := found[0]
		if cmd.Size != nil {
			v.Size = strings.TrimSpace(*cmd.Size)
		}
		if cmd.Color != nil {
			v.Color = strings.TrimSpace(*cmd.Color)
		}
		if cmd.SKU != nil {
			v.SKU = variant.NormalizeSKU(*cmd.SKU)
		}
		if cmd.Price != nil {
			v.Price = *cmd.Price
		}
		if cmd.Stock != nil {
			v.SetStock(*cmd.Stock)
		}
		if err := v.Validate(); err != nil {
			call.Fail("VALIDATION_FAILED")
			return apperr.Wrap(apperr.KindValidation, "variant", err)
		}
		if err := repos.Variants.Update(ctx, v); err != nil {
			call.Fail("REPO_UPDATE_FAILED")
			return wrapRepositoryError("variant", err)
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = uc.inst.Publish(ctx, uc.publisher, variant.NewStockChangedEvent(updated))
	return updated, nil
}

func (uc *VariantUseCases) Delete(ctx context.Context, id string) (err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseVariantDelete, "DeleteVariant",
		attribute.String("variant.id", id),
	)
	defer func() { call.End(err) }()
	call.Field("variant_id", id)

	if err := uc.store.Repositories().Variants.Delete(ctx, id); err != nil {
		call.Fail("REPO_DELETE_FAILED")
		return wrapRepositoryError("variant", err)
	}
	_ = uc.inst.Publish(ctx, uc.publisher, variant.NewVariantDeletedEvent(id))
	return nil
}

func (uc *VariantUseCases) ListByProduct(ctx context.Context, productID string) (_ []*variant.Variant, err error) {
	ctx, call := uc.inst.Begin(ctx, useCaseVariantList, "ListVariants",
		attribute.String("variant.product_id", productID),
	)
	defer func() { call.End(err) }()

	vs, err := uc.store.Repositories().Variants.ListByProduct(ctx, productID)
	if err != nil {
		call.Fail("REPO_LIST_FAILED")
		return nil, wrapRepositoryError("variant", err)
	}
	call.Field("count", len(vs))
	return vs, nil
}

func wrapRepositoryError(entity string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, variant.ErrNotFound), errors.Is(err, product.ErrNotFound):
		return apperr.NotFound(entity+" not found", err)
	case errors.Is(err, variant.ErrConflict):
		return apperr.Conflict(entity+" already exists", err)
	default:
		return apperr.Internal(fmt.Sprintf("%s repository failure", entity), err)
	}
}
