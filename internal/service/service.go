// Package service реализует бизнес-логику сервиса управления тендерами.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kaiken/licitaciones/internal/cache"
	"github.com/kaiken/licitaciones/internal/metrics"
	"github.com/kaiken/licitaciones/internal/model"
)

// readPrefix объединяет ключи кэша результатов чтения.
const readPrefix = "read:"

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateClient(ctx context.Context, name, rut string) (int64, error)
	UpdateClientName(ctx context.Context, id int64, name string) error
	GetClient(ctx context.Context, id int64) (*model.Client, error)
	ListClients(ctx context.Context) ([]model.Client, error)

	CreateProduct(ctx context.Context, p model.Product) error
	UpdateProduct(ctx context.Context, p model.Product) error
	GetProduct(ctx context.Context, sku string) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProductsBySKU(ctx context.Context, skus []string) (map[string]model.Product, error)

	SaveTender(ctx context.Context, mode model.SaveMode, t model.Tender) error
	GetTender(ctx context.Context, id string) (*model.Tender, error)
	GetTenderDetail(ctx context.Context, id string) (*model.TenderDetail, error)
	SearchTenders(ctx context.Context, query string) ([]model.TenderSummary, error)

	ClientProfitability(ctx context.Context, period model.DateRange) ([]model.ClientProfitability, error)
	TopProducts(ctx context.Context, period model.DateRange, limit int) ([]model.ProductMargin, error)
	MonthlyTrend(ctx context.Context, period model.DateRange) ([]model.MonthlyTrend, error)
}

// Service содержит бизнес-логику сервиса управления тендерами.
type Service struct {
	repo     Repository
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	tracer   trace.Tracer
}

// NewService создаёт сервис. При c == nil результаты чтения не кэшируются.
func NewService(repo Repository, c cache.Cache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   logger,
		tracer:   otel.Tracer("github.com/kaiken/licitaciones/internal/service"),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// cached возвращает значение из кэша или загружает и сохраняет его.
// Ключ включает поколение кэша, прочитанное до загрузки: если запись успела
// инвалидировать кэш, результат сохраняется под устаревшим поколением и не читается.
// Ошибки кэша не прерывают чтение: данные берутся из хранилища.
func cached[T any](ctx context.Context, s *Service, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		s.logger.Warn("cache generation error", zap.Error(err))
		metrics.ObserveCacheLookup(false)
		return load(ctx)
	}
	key = fmt.Sprintf("%s%d:%s", readPrefix, gen, key)

	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get error", zap.String("key", key), zap.Error(err))
	}
	if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			metrics.ObserveCacheLookup(true)
			return v, nil
		}
	}
	metrics.ObserveCacheLookup(false)

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	raw, err = json.Marshal(v)
	if err == nil {
		err = s.cache.Set(ctx, key, raw, s.cacheTTL)
	}
	if err != nil {
		s.logger.Warn("cache set error", zap.String("key", key), zap.Error(err))
	}

	return v, nil
}

// invalidateReads переводит кэш чтения на новое поколение после успешной записи.
func (s *Service) invalidateReads(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("cache invalidation error", zap.Error(err))
	}
}

func dateKey(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(model.DateLayout)
}

func periodKey(period model.DateRange) string {
	return fmt.Sprintf("%s:%s", dateKey(period.From), dateKey(period.To))
}
