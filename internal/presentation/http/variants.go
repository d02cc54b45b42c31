package httppresentation

import (
	"net/http"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application/inventory"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/auth"
)

func (h *Handler) handleCreateVariant(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, auth.PermCatalogWrite) == nil {
		return
	}
	var req createVariantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	v, err := h.deps.Variants.Create(r.Context(), inventory.CreateVariantInput{
		ProductID: req.ProductID,
		Size:      req.Size,
		Color:     req.Color,
		SKU:       req.SKU,
		Price:     req.Price,
		Stock:     req.Stock,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, variantFrom(v))
}

func (h *Handler) handleUpdateVariant(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, auth.PermCatalogWrite) == nil {
		return
	}
	var req updateVariantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAppError(w, r, err)
		return
	}
	v, err := h.deps.Variants.Update(r.Context(), inventory.UpdateVariantInput{
		ID:    r.PathValue("id"),
		Size:  req.Size,
		Color: req.Color,
		SKU:   req.SKU,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, variantFrom(v))
}

func (h *Handler) handleDeleteVariant(w http.ResponseWriter, r *http.Request) {
	if requirePermission(w, r, auth.PermCatalogWrite) == nil {
		return
	}
	id := r.PathValue("id")
	if err := h.deps.Variants.Delete(r.Context(), id); err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedVariantDTO{ID: id, Deleted: true})
}

func (h *Handler) handleListVariants(w http.ResponseWriter, r *http.Request) {
	vs, err := h.deps.Variants.ListByProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, variantsFrom(vs))
}
