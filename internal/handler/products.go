package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/set-night/shopassist/internal/catalog"
	"github.com/set-night/shopassist/internal/domain"
	"github.com/set-night/shopassist/internal/middleware"
	"github.com/shopspring/decimal"
)

const (
	sourceAssistant = "assistant"
	sourceCatalog   = "catalog"
)

type suggestionView struct {
	domain.ProductSuggestion
	ID   string `json:"id"`
	Link string `json:"link"`
}

type listingResponse struct {
	Source      string           `json:"source"`
	Suggestions []suggestionView `json:"suggestions,omitempty"`
	*catalog.Page
	Facets *catalog.Facets `json:"facets,omitempty"`
}

// ListProducts shows what the bot last listed, falling back to the filtered catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientIDFromContext(r.Context())

	if listed := h.widget.ListingProducts(r.Context(), clientID); len(listed) > 0 {
		views := make([]suggestionView, len(listed))
		for i, p := range listed {
			views[i] = suggestionView{ProductSuggestion: p, ID: p.ProductID(), Link: p.InternalURL()}
		}
		JSON(w, http.StatusOK, listingResponse{Source: sourceAssistant, Suggestions: views})
		return
	}

	f, err := parseFilter(r)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	result := h.catalog.List(f, page)
	facets := h.catalog.Facets()
	JSON(w, http.StatusOK, listingResponse{Source: sourceCatalog, Page: &result, Facets: &facets})
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	q := r.URL.Query()
	f := catalog.Filter{
		Brands:  splitValues(q["brand"]),
		Genders: splitValues(q["gender"]),
		Colors:  splitValues(q["color"]),
	}

	if v := q.Get("minDiscount"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, errors.New("invalid minDiscount")
		}
		f.MinDiscount = n
	}
	var err error
	if f.MinPrice, err = parsePrice(q.Get("minPrice")); err != nil {
		return f, errors.New("invalid minPrice")
	}
	if f.MaxPrice, err = parsePrice(q.Get("maxPrice")); err != nil {
		return f, errors.New("invalid maxPrice")
	}
	return f, nil
}

func parsePrice(v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// splitValues accepts both repeated params and comma lists.
func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type productDetail struct {
	*domain.CatalogProduct
	DiscountPercent *int64 `json:"discountPercent"`
}

func (h *Handler) SelectedProduct(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientIDFromContext(r.Context())

	p, err := h.products.LoadSelectedProduct(r.Context(), clientID)
	if errors.Is(err, domain.ErrProductNotFound) {
		Error(w, http.StatusNotFound, "no product selected")
		return
	}
	if err != nil {
		slog.Error("load selected product", "error", err, "client_id", clientID)
		Error(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	JSON(w, http.StatusOK, productDetail{CatalogProduct: p, DiscountPercent: p.DiscountPercent()})
}

type selectRequest struct {
	ID string `json:"id"`
}

func (h *Handler) SelectProduct(w http.ResponseWriter, r *http.Request) {
	clientID := middleware.ClientIDFromContext(r.Context())

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		Error(w, http.StatusBadRequest, "id is required")
		return
	}

	p, err := h.catalog.Get(req.ID)
	if err != nil {
		Error(w, http.StatusNotFound, "product not found")
		return
	}
	if err := h.products.SaveSelectedProduct(r.Context(), clientID, p); err != nil {
		slog.Error("save selected product", "error", err, "client_id", clientID)
		Error(w, http.StatusInternalServerError, "failed to save product")
		return
	}
	JSON(w, http.StatusOK, productDetail{CatalogProduct: p, DiscountPercent: p.DiscountPercent()})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Ping(r.Context()); err != nil {
		slog.Error("health check", "error", err)
		Error(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
