package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/set-night/shopassist/internal/catalog"
	"github.com/set-night/shopassist/internal/config"
	"github.com/set-night/shopassist/internal/domain"
	"github.com/set-night/shopassist/internal/widget"
)

// ProductStore keeps the product a client last opened.
type ProductStore interface {
	LoadSelectedProduct(ctx context.Context, clientID string) (*domain.CatalogProduct, error)
	SaveSelectedProduct(ctx context.Context, clientID string, p *domain.CatalogProduct) error
	Ping(ctx context.Context) error
}

// Handler holds all dependencies needed by the HTTP handlers.
type Handler struct {
	cfg      *config.Config
	widget   *widget.Controller
	catalog  *catalog.Catalog
	products ProductStore
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg      *config.Config
	Widget   *widget.Controller
	Catalog  *catalog.Catalog
	Products ProductStore
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:      deps.Cfg,
		widget:   deps.Widget,
		catalog:  deps.Catalog,
		products: deps.Products,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
