package order

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

type VariantSummary struct {
	ID    string
	Size  string
	Color string
	SKU   string
	Price decimal.Decimal
}

type ProductSummary struct {
	ID    string
	Title string
}

// ItemView is an order line with the variant and product it refers to, when they still exist.
type ItemView struct {
	domain.Item
	Variant *VariantSummary
	Product *ProductSummary
}

type OrderView struct {
	Order *domain.Order
	Items []ItemView
}

// populate attaches variant and product summaries to every line. Lookups are batched;
// records that no longer exist are left nil.
func populate(ctx context.Context, repos application.Repositories, orders []*domain.Order) ([]OrderView, error) {
	variantIDs := map[string]struct{}{}
	productIDs := map[string]struct{}{}
	for _, o := range orders {
		for _, it := range o.Items {
			variantIDs[it.VariantID] = struct{}{}
			productIDs[it.ProductID] = struct{}{}
		}
	}

	variants := map[string]*VariantSummary{}
	if len(variantIDs) > 0 && repos.Variants != nil {
		vs, err := repos.Variants.FindByIDs(ctx, keys(variantIDs))
		if err != nil {
			return nil, err
		}
		for _, v := range vs {
			variants[v.ID] = &VariantSummary{ID: v.ID, Size: v.Size, Color: v.Color, SKU: v.SKU, Price: v.Price}
		}
	}
	products := map[string]*ProductSummary{}
	if len(productIDs) > 0 && repos.Products != nil {
		ps, err := repos.Products.FindByIDs(ctx, keys(productIDs))
		if err != nil {
			return nil, err
		}
		for _, p := range ps {
			products[p.ID] = &ProductSummary{ID: p.ID, Title: p.Title}
		}
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		view := OrderView{Order: o, Items: make([]ItemView, 0, len(o.Items))}
		for _, it := range o.Items {
			view.Items = append(view.Items, ItemView{
				Item:    it,
				Variant: variants[it.VariantID],
				Product: products[it.ProductID],
			})
		}
		views = append(views, view)
	}
	return views, nil
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
