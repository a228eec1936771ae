package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kaiken/licitaciones/internal/model"
	"github.com/kaiken/licitaciones/internal/service"
)

type clientProfitabilityResponse struct {
	ClientName   string          `json:"client_name"`
	Revenue      decimal.Decimal `json:"revenue"`
	TotalMargin  decimal.Decimal `json:"total_margin"`
	Tenders      int             `json:"tenders"`
	AvgMarginPct decimal.Decimal `json:"avg_margin_pct"`
}

type productMarginResponse struct {
	SKU         string          `json:"sku"`
	ProductName string          `json:"product_name"`
	TotalMargin decimal.Decimal `json:"total_margin"`
}

type monthlyTrendResponse struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Margin  decimal.Decimal `json:"margin"`
}

type dashboardResponse struct {
	From        string                        `json:"from,omitempty"`
	To          string                        `json:"to,omitempty"`
	Clients     []clientProfitabilityResponse `json:"clients"`
	TopClients  []clientProfitabilityResponse `json:"top_clients"`
	TopProducts []productMarginResponse       `json:"top_products"`
	Monthly     []monthlyTrendResponse        `json:"monthly"`
}

func toClientProfitability(in []model.ClientProfitability) []clientProfitabilityResponse {
	out := make([]clientProfitabilityResponse, 0, len(in))
	for _, c := range in {
		out = append(out, clientProfitabilityResponse{
			ClientName:   c.ClientName,
			Revenue:      c.Revenue,
			TotalMargin:  c.TotalMargin,
			Tenders:      c.Tenders,
			AvgMarginPct: c.AvgMarginPct,
		})
	}
	return out
}

// parsePeriod читает необязательные границы from и to.
func parsePeriod(r *http.Request) (model.DateRange, error) {
	var period model.DateRange
	q := r.URL.Query()

	if s := q.Get("from"); s != "" {
		t, err := parseDate("from", s)
		if err != nil {
			return period, err
		}
		period.From = t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate("to", s)
		if err != nil {
			return period, err
		}
		period.To = t
	}
	return period, nil
}

// Dashboard возвращает агрегаты рентабельности за период.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		h.writeError(w, "dashboard", err)
		return
	}

	top := 0
	if s := r.URL.Query().Get("top"); s != "" {
		top, err = strconv.Atoi(s)
		if err != nil {
			h.writeError(w, "dashboard", &service.ValidationError{Field: "top", Reason: "must be an integer"})
			return
		}
	}

	report, err := h.service.Dashboard(r.Context(), period, top)
	if err != nil {
		h.writeError(w, "dashboard", err)
		return
	}

	products := make([]productMarginResponse, 0, len(report.TopProducts))
	for _, p := range report.TopProducts {
		products = append(products, productMarginResponse{SKU: p.SKU, ProductName: p.ProductName, TotalMargin: p.TotalMargin})
	}

	monthly := make([]monthlyTrendResponse, 0, len(report.Monthly))
	for _, m := range report.Monthly {
		monthly = append(monthly, monthlyTrendResponse{Month: m.Month.Format("2006-01"), Revenue: m.Revenue, Margin: m.Margin})
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		From:        formatDate(report.Range.From),
		To:          formatDate(report.Range.To),
		Clients:     toClientProfitability(report.Clients),
		TopClients:  toClientProfitability(report.TopClients),
		TopProducts: products,
		Monthly:     monthly,
	})
}
