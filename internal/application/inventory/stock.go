// Package inventory holds the variant stock operations shared by the checkout workflows
// and the admin variant use cases.
package inventory

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/apperr"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/variant"
)

// Line is one requested variant quantity.
type Line struct {
	VariantID string
	Quantity  int
}

// ReserveStock decrements stock for every line inside the caller's unit of work.
// The variants are read (and locked) first so the whole batch is checked before any write;
// the conditional decrement still guards each row. The returned variants carry the
// post-decrement stock, keyed by id, and must be surfaced only after commit.
func ReserveStock(ctx context.Context, repos application.Repositories, lines []Line) (map[string]*variant.Variant, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.VariantID)
	}
	found, err := repos.Variants.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("inventory: load variants: %w", err)
	}
	byID := make(map[string]*variant.Variant, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	for _, l := range lines {
		v, ok := byID[l.VariantID]
		if !ok {
			return nil, apperr.NotFound("variant "+l.VariantID, variant.ErrNotFound)
		}
		if !v.CanCover(l.Quantity) {
			return nil, &variant.InsufficientStockError{
				VariantID: v.ID,
				SKU:       v.SKU,
				Requested: l.Quantity,
				Available: v.Stock,
			}
		}
	}

	changed := make(map[string]*variant.Variant, len(lines))
	for _, l := range lines {
		updated, err := repos.Variants.DecrementStock(ctx, l.VariantID, l.Quantity)
		if err != nil {
			return nil, fmt.Errorf("inventory: decrement %s: %w", l.VariantID, err)
		}
		changed[updated.ID] = updated
	}
	return changed, nil
}

// ReleaseStock returns quantities to stock. Variants deleted since the reservation are skipped.
func ReleaseStock(ctx context.Context, repos application.Repositories, lines []Line) ([]*variant.Variant, error) {
	changed := make([]*variant.Variant, 0, len(lines))
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		updated, err := repos.Variants.IncrementStock(ctx, l.VariantID, l.Quantity)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				continue
			}
			return nil, fmt.Errorf("inventory: restock %s: %w", l.VariantID, err)
		}
		changed = append(changed, updated)
	}
	return changed, nil
}
