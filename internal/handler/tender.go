package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kaiken/licitaciones/internal/model"
	"github.com/kaiken/licitaciones/internal/validation"
)

type lineRequest struct {
	SKU      string          `json:"sku" validate:"required"`
	Quantity int             `json:"quantity" validate:"gte=1"`
	Price    decimal.Decimal `json:"price"`
}

type tenderRequest struct {
	ID           string        `json:"id"`
	ClientID     int64         `json:"client_id" validate:"gt=0"`
	CreationDate string        `json:"creation_date" validate:"required"`
	DeliveryDate string        `json:"delivery_date" validate:"required"`
	Lines        []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (req tenderRequest) toModel() (model.Tender, error) {
	creation, err := parseDate("creation_date", req.CreationDate)
	if err != nil {
		return model.Tender{}, err
	}
	delivery, err := parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		return model.Tender{}, err
	}

	lines := make([]model.OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, model.OrderLine{
			SKU:      strings.TrimSpace(l.SKU),
			Quantity: l.Quantity,
			Price:    l.Price,
		})
	}

	return model.Tender{
		ID:           req.ID,
		ClientID:     req.ClientID,
		CreationDate: creation,
		DeliveryDate: delivery,
		Lines:        lines,
	}, nil
}

type lineResponse struct {
	SKU      string          `json:"sku"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type tenderResponse struct {
	ID           string         `json:"id"`
	ClientID     int64          `json:"client_id"`
	CreationDate string         `json:"creation_date"`
	DeliveryDate string         `json:"delivery_date"`
	Lines        []lineResponse `json:"lines"`
}

func toTenderResponse(t model.Tender) tenderResponse {
	lines := make([]lineResponse, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, lineResponse{SKU: l.SKU, Quantity: l.Quantity, Price: l.Price})
	}
	return tenderResponse{
		ID:           t.ID,
		ClientID:     t.ClientID,
		CreationDate: formatDate(t.CreationDate),
		DeliveryDate: formatDate(t.DeliveryDate),
		Lines:        lines,
	}
}

type tenderSummaryResponse struct {
	ID           string `json:"id"`
	ClientID     int64  `json:"client_id"`
	ClientName   string `json:"client_name"`
	ClientRUT    string `json:"client_rut"`
	CreationDate string `json:"creation_date"`
	DeliveryDate string `json:"delivery_date"`
}

func toSummaryResponse(s model.TenderSummary) tenderSummaryResponse {
	rut, ok := validation.FormatRUT(s.ClientRUT)
	if !ok {
		rut = s.ClientRUT
	}
	return tenderSummaryResponse{
		ID:           s.ID,
		ClientID:     s.ClientID,
		ClientName:   s.ClientName,
		ClientRUT:    rut,
		CreationDate: formatDate(s.CreationDate),
		DeliveryDate: formatDate(s.DeliveryDate),
	}
}

type lineDetailResponse struct {
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Margin      decimal.Decimal `json:"margin"`
}

type tenderDetailResponse struct {
	tenderSummaryResponse
	Lines     []lineDetailResponse `json:"lines"`
	Revenue   decimal.Decimal      `json:"revenue"`
	Cost      decimal.Decimal      `json:"cost"`
	Margin    decimal.Decimal      `json:"margin"`
	MarginPct decimal.Decimal      `json:"margin_pct"`
}

// CreateTender создаёт тендер вместе с позициями.
func (h *Handler) CreateTender(w http.ResponseWriter, r *http.Request) {
	var req tenderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "required", Field: "id"})
		return
	}

	h.saveTender(w, r, model.SaveModeCreate, req)
}

// UpdateTender заменяет заголовок и весь набор позиций тендера.
func (h *Handler) UpdateTender(w http.ResponseWriter, r *http.Request) {
	var req tenderRequest
	if !h.decode(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if req.ID != "" && req.ID != id {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "id does not match path", Field: "id"})
		return
	}
	req.ID = id

	h.saveTender(w, r, model.SaveModeUpdate, req)
}

func (h *Handler) saveTender(w http.ResponseWriter, r *http.Request, mode model.SaveMode, req tenderRequest) {
	t, err := req.toModel()
	if err != nil {
		h.writeError(w, "parse tender", err)
		return
	}

	if err := h.service.SaveTender(r.Context(), mode, t); err != nil {
		h.writeError(w, "save tender", err)
		return
	}

	code := http.StatusOK
	if mode == model.SaveModeCreate {
		code = http.StatusCreated
	}
	t.ID = strings.TrimSpace(t.ID)
	writeJSON(w, code, toTenderResponse(t))
}

// GetTender возвращает тендер в виде формы редактирования.
func (h *Handler) GetTender(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetTender(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get tender", err)
		return
	}
	writeJSON(w, http.StatusOK, toTenderResponse(*t))
}

// GetTenderDetail возвращает тендер с рентабельностью по позициям и итогами.
func (h *Handler) GetTenderDetail(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.GetTenderDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, "get tender detail", err)
		return
	}

	lines := make([]lineDetailResponse, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, lineDetailResponse{
			SKU:         l.SKU,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			Price:       l.Price,
			Cost:        l.Cost,
			Margin:      l.Margin,
		})
	}

	writeJSON(w, http.StatusOK, tenderDetailResponse{
		tenderSummaryResponse: toSummaryResponse(d.TenderSummary),
		Lines:                 lines,
		Revenue:               d.Revenue,
		Cost:                  d.Cost,
		Margin:                d.Margin,
		MarginPct:             d.MarginPct,
	})
}

// SearchTenders ищет тендеры по параметру q.
func (h *Handler) SearchTenders(w http.ResponseWriter, r *http.Request) {
	tenders, err := h.service.SearchTenders(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, "search tenders", err)
		return
	}

	resp := make([]tenderSummaryResponse, 0, len(tenders))
	for _, t := range tenders {
		resp = append(resp, toSummaryResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}
