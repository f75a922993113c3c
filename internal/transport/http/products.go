package http

import (
	"context"
	"net/http"

	"github.com/eveul/storefront/internal/domain"
	"github.com/eveul/storefront/internal/service"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
)

type ProductHandler struct {
	productService service.ProductService
	logger         hclog.Logger
}

func NewProductHandler(ps service.ProductService, log hclog.Logger) *ProductHandler {
	return &ProductHandler{
		productService: ps,
		logger:         log,
	}
}

// Catalog handles GET /watches
//
// swagger:route GET /watches catalog listWatches
//
// Returns the active watches, newest first.
//
// Responses:
//
//	200: catalogResponse
//	400: errorResponse
//	500: errorResponse
func (h *ProductHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	collection := domain.Collection(r.URL.Query().Get("collection"))

	cards, err := h.productService.Catalog(r.Context(), collection)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, cards)
}

// ProductPage handles GET /watches/{slug}
//
// swagger:route GET /watches/{slug} catalog getWatch
//
// Returns an active watch with its images and related watches.
//
// Responses:
//
//	200: productPageResponse
//	404: errorResponse
//	500: errorResponse
func (h *ProductHandler) ProductPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.productService.ProductPage(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, page)
}

// ListProducts handles GET /admin/products
//
// swagger:route GET /admin/products admin listProducts
//
// Returns every product regardless of status, newest first.
//
// Responses:
//
//	200: productsResponse
//	500: errorResponse
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.ListProducts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, products)
}

// GetProduct handles GET /admin/products/{id}
//
// swagger:route GET /admin/products/{id} admin getProduct
//
// Returns a product with its ordered images.
//
// Responses:
//
//	200: productDetailResponse
//	404: errorResponse
//	500: errorResponse
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	detail, err := h.productService.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, detail)
}

// CreateProduct handles POST /admin/products
//
// swagger:route POST /admin/products admin createProduct
//
// Creates a product. New products are drafts unless a status is given.
//
// Responses:
//
//	201: productResponse
//	400: errorResponse
//	409: errorResponse
//	422: errorResponse
//	500: errorResponse
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	// Retrieve the validated product from the context
	in, ok := productInput(r)
	if !ok {
		writeError(w, h.logger, domain.E(domain.InvalidInput, "http.CreateProduct", "invalid product data", nil))
		return
	}

	product, err := h.productService.CreateProduct(r.Context(), *in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, product)
}

// UpdateProduct handles PUT /admin/products/{id}
//
// swagger:route PUT /admin/products/{id} admin updateProduct
//
// Replaces the editable fields of a product.
//
// Responses:
//
//	200: productResponse
//	400: errorResponse
//	404: errorResponse
//	409: errorResponse
//	422: errorResponse
//	500: errorResponse
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	in, ok := productInput(r)
	if !ok {
		writeError(w, h.logger, domain.E(domain.InvalidInput, "http.UpdateProduct", "invalid product data", nil))
		return
	}

	product, err := h.productService.UpdateProduct(r.Context(), mux.Vars(r)["id"], *in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, product)
}

// StatusRequest changes the status of a product
//
// swagger:model
type StatusRequest struct {
	// draft, active or archived
	//
	// required: true
	Status domain.Status `json:"status"`
}

// SetStatus handles PATCH /admin/products/{id}/status
//
// swagger:route PATCH /admin/products/{id}/status admin setProductStatus
//
// Moves a product between draft, active and archived.
//
// Responses:
//
//	200: productResponse
//	400: errorResponse
//	404: errorResponse
//	500: errorResponse
func (h *ProductHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, h.logger, domain.E(domain.InvalidInput, "http.SetStatus", "invalid status data", err))
		return
	}

	product, err := h.productService.SetStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, product)
}

// Publish handles POST /admin/products/{id}/publish
//
// swagger:route POST /admin/products/{id}/publish admin publishProduct
//
// Makes a product visible in the catalog.
//
// Responses:
//
//	200: productResponse
//	404: errorResponse
//	500: errorResponse
func (h *ProductHandler) Publish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.productService.Publish)
}

// Unpublish handles POST /admin/products/{id}/unpublish
//
// swagger:route POST /admin/products/{id}/unpublish admin unpublishProduct
//
// Turns a product back into a draft.
//
// Responses:
//
//	200: productResponse
//	404: errorResponse
//	500: errorResponse
func (h *ProductHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.productService.Unpublish)
}

// Archive handles POST /admin/products/{id}/archive
//
// swagger:route POST /admin/products/{id}/archive admin archiveProduct
//
// Removes a product from the catalog without deleting it.
//
// Responses:
//
//	200: productResponse
//	404: errorResponse
//	500: errorResponse
func (h *ProductHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.productService.Archive)
}

func (h *ProductHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, id string) (*domain.Product, error),
) {
	product, err := fn(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, h.logger, http.StatusOK, product)
}
