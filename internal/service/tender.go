package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kaiken/licitaciones/internal/metrics"
	"github.com/kaiken/licitaciones/internal/model"
	"github.com/kaiken/licitaciones/internal/repository"
)

// moneyScale ограничивает число знаков после запятой в ценах и себестоимости.
const moneyScale = 2

// SaveTender проверяет форму тендера и сохраняет его одной транзакцией.
func (s *Service) SaveTender(ctx context.Context, mode model.SaveMode, t model.Tender) (err error) {
	ctx, span := s.tracer.Start(ctx, "service.SaveTender", trace.WithAttributes(
		attribute.String("tender.id", t.ID),
		attribute.String("tender.mode", mode.String()),
		attribute.Int("tender.lines", len(t.Lines)),
	))
	start := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = saveResult(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		metrics.ObserveTenderSave(mode.String(), result, time.Since(start))
		span.End()
	}()

	if mode != model.SaveModeCreate && mode != model.SaveModeUpdate {
		return invalid("mode", "must be create or update")
	}

	t.ID = strings.TrimSpace(t.ID)
	if err := validateTender(t); err != nil {
		return err
	}
	if err := s.checkLineMargins(ctx, t.Lines); err != nil {
		return err
	}

	if err := s.repo.SaveTender(ctx, mode, t); err != nil {
		s.logger.Warn("tender save failed",
			zap.String("tender_id", t.ID),
			zap.Stringer("mode", mode),
			zap.Error(err),
		)
		return err
	}

	s.invalidateReads(ctx)
	s.logger.Info("tender saved",
		zap.String("tender_id", t.ID),
		zap.Stringer("mode", mode),
		zap.Int("lines", len(t.Lines)),
	)
	return nil
}

func validateTender(t model.Tender) error {
	if t.ID == "" {
		return invalid("id", "required")
	}
	if t.ClientID <= 0 {
		return invalid("client_id", "required")
	}
	if t.CreationDate.IsZero() {
		return invalid("creation_date", "required")
	}
	if t.DeliveryDate.IsZero() {
		return invalid("delivery_date", "required")
	}
	if !t.DeliveryDate.After(t.CreationDate) {
		return invalid("delivery_date", "must be after creation_date")
	}
	if len(t.Lines) == 0 {
		return invalid("lines", "at least one line required")
	}

	seen := make(map[string]struct{}, len(t.Lines))
	for i, l := range t.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if strings.TrimSpace(l.SKU) == "" {
			return invalid(field+".sku", "required")
		}
		if _, dup := seen[l.SKU]; dup {
			return invalid(field+".sku", "duplicate product "+l.SKU)
		}
		seen[l.SKU] = struct{}{}

		if l.Quantity < 1 {
			return invalid(field+".quantity", "must be at least 1")
		}
		if !l.Price.IsPositive() {
			return invalid(field+".price", "must be positive")
		}
		if !l.Price.Equal(l.Price.Round(moneyScale)) {
			return invalid(field+".price", "at most 2 decimal places")
		}
	}
	return nil
}

// checkLineMargins сверяет цены позиций с текущей себестоимостью товаров.
// Окончательная проверка выполняется в транзакции под блокировкой строки товара.
func (s *Service) checkLineMargins(ctx context.Context, lines []model.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	skus := make([]string, 0, len(lines))
	for _, l := range lines {
		skus = append(skus, l.SKU)
	}

	products, err := s.repo.GetProductsBySKU(ctx, skus)
	if err != nil {
		return err
	}

	for i, l := range lines {
		p, ok := products[l.SKU]
		if !ok {
			return fmt.Errorf("%w: product %s", repository.ErrInvalidReference, l.SKU)
		}
		if l.Price.LessThanOrEqual(p.Cost) {
			return invalid(fmt.Sprintf("lines[%d].price", i),
				fmt.Sprintf("must exceed product cost %s", p.Cost.StringFixed(moneyScale)))
		}
	}
	return nil
}

func saveResult(err error) string {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, repository.ErrConflict):
		return "conflict"
	case errors.Is(err, repository.ErrTenderNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrInvalidReference):
		return "invalid_reference"
	case errors.Is(err, repository.ErrMarginViolation):
		return "margin"
	case errors.Is(err, repository.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// GetTender возвращает тендер с позициями для редактирования.
func (s *Service) GetTender(ctx context.Context, id string) (*model.Tender, error) {
	return cached(ctx, s, "tender:"+id, func(ctx context.Context) (*model.Tender, error) {
		return s.repo.GetTender(ctx, id)
	})
}

// GetTenderDetail возвращает тендер с итоговой рентабельностью.
func (s *Service) GetTenderDetail(ctx context.Context, id string) (*model.TenderDetail, error) {
	return cached(ctx, s, "tender-detail:"+id, func(ctx context.Context) (*model.TenderDetail, error) {
		return s.repo.GetTenderDetail(ctx, id)
	})
}

// SearchTenders ищет тендеры по фрагменту идентификатора или имени клиента.
func (s *Service) SearchTenders(ctx context.Context, query string) ([]model.TenderSummary, error) {
	query = strings.TrimSpace(query)
	return cached(ctx, s, "tenders:"+query, func(ctx context.Context) ([]model.TenderSummary, error) {
		return s.repo.SearchTenders(ctx, query)
	})
}
