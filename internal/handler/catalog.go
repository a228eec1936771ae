package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kaiken/licitaciones/internal/model"
	"github.com/kaiken/licitaciones/internal/validation"
)

type clientRequest struct {
	Name string `json:"name" validate:"required,max=200"`
	RUT  string `json:"rut" validate:"required,rut"`
}

type clientUpdateRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type clientResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	RUT          string `json:"rut"`
	FormattedRUT string `json:"formatted_rut"`
}

func toClientResponse(c model.Client) clientResponse {
	formatted, _ := validation.FormatRUT(c.RUT)
	return clientResponse{
		ID:           c.ID,
		Name:         c.Name,
		RUT:          c.RUT,
		FormattedRUT: formatted,
	}
}

func clientID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid client id", Field: "id"})
		return 0, false
	}
	return id, true
}

// CreateClient регистрирует клиента.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateClient(r.Context(), req.Name, req.RUT)
	if err != nil {
		h.writeError(w, "create client", err)
		return
	}

	writeJSON(w, http.StatusCreated, toClientResponse(*c))
}

// UpdateClient меняет имя клиента.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	var req clientUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.UpdateClient(r.Context(), id, req.Name); err != nil {
		h.writeError(w, "update client", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetClient возвращает клиента.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(w, r)
	if !ok {
		return
	}

	c, err := h.service.GetClient(r.Context(), id)
	if err != nil {
		h.writeError(w, "get client", err)
		return
	}
	writeJSON(w, http.StatusOK, toClientResponse(*c))
}

// ListClients возвращает всех клиентов.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.service.ListClients(r.Context())
	if err != nil {
		h.writeError(w, "list clients", err)
		return
	}

	resp := make([]clientResponse, 0, len(clients))
	for _, c := range clients {
		resp = append(resp, toClientResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

type productRequest struct {
	SKU  string          `json:"sku" validate:"required,max=64"`
	Name string          `json:"name" validate:"required,max=200"`
	Cost decimal.Decimal `json:"cost"`
}

type productUpdateRequest struct {
	Name string          `json:"name" validate:"required,max=200"`
	Cost decimal.Decimal `json:"cost"`
}

type productResponse struct {
	SKU  string          `json:"sku"`
	Name string          `json:"name"`
	Cost decimal.Decimal `json:"cost"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{SKU: p.SKU, Name: p.Name, Cost: p.Cost}
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.CreateProduct(r.Context(), model.Product{SKU: req.SKU, Name: req.Name, Cost: req.Cost})
	if err != nil {
		h.writeError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(*p))
}

// UpdateProduct меняет название и себестоимость товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productUpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	p := model.Product{SKU: chi.URLParam(r, "sku"), Name: req.Name, Cost: req.Cost}
	if err := h.service.UpdateProduct(r.Context(), p); err != nil {
		h.writeError(w, "update product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetProduct возвращает товар по SKU.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.writeError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// ListProducts возвращает каталог товаров.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.writeError(w, "list products", err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
