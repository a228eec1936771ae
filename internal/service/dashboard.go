package service

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/kaiken/licitaciones/internal/model"
)

const (
	// DefaultTopN задаёт размер рейтингов панели по умолчанию.
	DefaultTopN = 5
	// MaxTopN ограничивает размер рейтингов панели.
	MaxTopN = 50
)

// Dashboard собирает агрегаты рентабельности за период.
// Перед первым обращением к хранилищу соединение проверяется один раз.
func (s *Service) Dashboard(ctx context.Context, period model.DateRange, top int) (*model.DashboardReport, error) {
	if !period.From.IsZero() && !period.To.IsZero() && period.To.Before(period.From) {
		return nil, invalid("to", "must not be before from")
	}
	switch {
	case top == 0:
		top = DefaultTopN
	case top < 0 || top > MaxTopN:
		return nil, invalid("top", fmt.Sprintf("must be between 1 and %d", MaxTopN))
	}

	checked := false
	ensure := func(ctx context.Context) error {
		if checked {
			return nil
		}
		checked = true
		return s.repo.Ping(ctx)
	}

	key := periodKey(period)

	clients, err := cached(ctx, s, "dashboard:clients:"+key, func(ctx context.Context) ([]model.ClientProfitability, error) {
		if err := ensure(ctx); err != nil {
			return nil, err
		}
		return s.repo.ClientProfitability(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	products, err := cached(ctx, s, "dashboard:products:"+key+":"+strconv.Itoa(top), func(ctx context.Context) ([]model.ProductMargin, error) {
		if err := ensure(ctx); err != nil {
			return nil, err
		}
		return s.repo.TopProducts(ctx, period, top)
	})
	if err != nil {
		return nil, err
	}

	monthly, err := cached(ctx, s, "dashboard:monthly:"+key, func(ctx context.Context) ([]model.MonthlyTrend, error) {
		if err := ensure(ctx); err != nil {
			return nil, err
		}
		return s.repo.MonthlyTrend(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	return &model.DashboardReport{
		Range:       period,
		Clients:     clients,
		TopClients:  topClients(clients, top),
		TopProducts: products,
		Monthly:     monthly,
	}, nil
}

// topClients возвращает n клиентов с наибольшей суммарной маржой.
func topClients(clients []model.ClientProfitability, n int) []model.ClientProfitability {
	sorted := slices.Clone(clients)
	slices.SortStableFunc(sorted, func(a, b model.ClientProfitability) int {
		return b.TotalMargin.Cmp(a.TotalMargin)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
