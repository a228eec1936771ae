// Package handler содержит HTTP-обработчики API сервиса управления тендерами.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kaiken/licitaciones/internal/model"
	"github.com/kaiken/licitaciones/internal/repository"
	"github.com/kaiken/licitaciones/internal/service"
	"github.com/kaiken/licitaciones/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error
	CheckRUT(raw string) (string, bool)

	CreateClient(ctx context.Context, name, rut string) (*model.Client, error)
	UpdateClient(ctx context.Context, id int64, name string) error
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	ListClients(ctx context.Context) ([]model.Client, error)

	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	GetProduct(ctx context.Context, sku string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)

	SaveTender(ctx context.Context, mode model.SaveMode, t model.Tender) error
	GetTender(ctx context.Context, id string) (*model.Tender, error)
	GetTenderDetail(ctx context.Context, id string) (*model.TenderDetail, error)
	SearchTenders(ctx context.Context, query string) ([]model.TenderSummary, error)

	Dashboard(ctx context.Context, period model.DateRange, top int) (*model.DashboardReport, error)
}

// Handler реализует HTTP-обработчики API сервиса управления тендерами.
type Handler struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger) (*Handler, error) {
	v, err := validation.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}
	return &Handler{
		service:  s,
		logger:   logger,
		validate: v,
	}, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// statusFor сопоставляет ошибку бизнес-логики с HTTP-статусом.
func statusFor(err error) int {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, repository.ErrInvalidReference),
		errors.Is(err, repository.ErrMarginViolation),
		errors.Is(err, repository.ErrInvalidData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repository.ErrTenderNotFound),
		errors.Is(err, repository.ErrClientNotFound),
		errors.Is(err, repository.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает статусом, соответствующим ошибке. Подробности внутренних ошибок
// попадают только в журнал.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)

	switch code {
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		h.logger.Error(op+" error", zap.Error(err))
		http.Error(w, http.StatusText(code), code)
		return
	}

	resp := errorResponse{Error: err.Error()}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Reason
		resp.Field = verr.Field
	}
	writeJSON(w, code, resp)
}

// writeValidationError преобразует ошибки validator в ответ 400.
func (h *Handler) writeValidationError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: http.StatusText(http.StatusBadRequest)}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		resp.Field = jsonFieldPath(fe.Namespace())
		resp.Error = fmt.Sprintf("failed on %q", fe.Tag())
	}
	writeJSON(w, http.StatusBadRequest, resp)
}

// jsonFieldPath отрезает имя корневой структуры: tenderRequest.lines[0].sku -> lines[0].sku.
func jsonFieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decode читает JSON-тело запроса и проверяет его теги validate.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body"})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeValidationError(w, err)
		return false
	}
	return true
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: field, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(model.DateLayout)
}

// Ping проверяет доступность хранилища.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("ping failed", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type rutResponse struct {
	RUT       string `json:"rut"`
	Valid     bool   `json:"valid"`
	Formatted string `json:"formatted,omitempty"`
}

// ValidateRUT проверяет RUT из параметра запроса.
func (h *Handler) ValidateRUT(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("rut")
	formatted, ok := h.service.CheckRUT(raw)
	writeJSON(w, http.StatusOK, rutResponse{RUT: raw, Valid: ok, Formatted: formatted})
}
