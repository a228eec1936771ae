package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kaiken/licitaciones/internal/model"
	"github.com/kaiken/licitaciones/internal/validation"
)

// CheckRUT проверяет RUT и возвращает его форматированное представление.
func (s *Service) CheckRUT(raw string) (string, bool) {
	return validation.FormatRUT(raw)
}

// CreateClient регистрирует клиента. RUT сохраняется в каноническом виде.
func (s *Service) CreateClient(ctx context.Context, name, rut string) (*model.Client, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "required")
	}
	if !validation.IsValidRUT(rut) {
		return nil, invalid("rut", "invalid check digit or format")
	}

	canonical := validation.NormalizeRUT(rut)
	id, err := s.repo.CreateClient(ctx, name, canonical)
	if err != nil {
		return nil, err
	}

	s.invalidateReads(ctx)
	s.logger.Info("client created", zap.Int64("client_id", id))
	return &model.Client{ID: id, Name: name, RUT: canonical}, nil
}

// UpdateClient меняет имя клиента.
func (s *Service) UpdateClient(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name", "required")
	}
	if err := s.repo.UpdateClientName(ctx, id, name); err != nil {
		return err
	}
	s.invalidateReads(ctx)
	return nil
}

// GetClient возвращает клиента по идентификатору.
func (s *Service) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	return cached(ctx, s, "client:"+strconv.FormatInt(id, 10), func(ctx context.Context) (*model.Client, error) {
		return s.repo.GetClient(ctx, id)
	})
}

// ListClients возвращает всех клиентов.
func (s *Service) ListClients(ctx context.Context) ([]model.Client, error) {
	return cached(ctx, s, "clients", s.repo.ListClients)
}

func validateProduct(p model.Product) error {
	if p.SKU == "" {
		return invalid("sku", "required")
	}
	if p.Name == "" {
		return invalid("name", "required")
	}
	if !p.Cost.IsPositive() {
		return invalid("cost", "must be positive")
	}
	if !p.Cost.Equal(p.Cost.Round(moneyScale)) {
		return invalid("cost", "at most 2 decimal places")
	}
	return nil
}

// CreateProduct добавляет товар в каталог и возвращает сохранённую запись.
func (s *Service) CreateProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.invalidateReads(ctx)
	s.logger.Info("product created", zap.String("sku", p.SKU))
	return &p, nil
}

// UpdateProduct меняет название и себестоимость товара.
// Себестоимость не может достичь цены продажи существующих позиций.
func (s *Service) UpdateProduct(ctx context.Context, p model.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if err := validateProduct(p); err != nil {
		return err
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.invalidateReads(ctx)
	return nil
}

// GetProduct возвращает товар по SKU.
func (s *Service) GetProduct(ctx context.Context, sku string) (*model.Product, error) {
	return cached(ctx, s, "product:"+sku, func(ctx context.Context) (*model.Product, error) {
		return s.repo.GetProduct(ctx, sku)
	})
}

// ListProducts возвращает каталог товаров.
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	return cached(ctx, s, "products", s.repo.ListProducts)
}
