// Package model содержит доменные сущности сервиса управления тендерами.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout задаёт формат календарной даты в API.
const DateLayout = "2006-01-02"

// Client представляет клиента организации.
type Client struct {
	ID   int64
	Name string
	// RUT хранится в каноническом виде без точек и дефиса.
	RUT string
}

// Product представляет товар каталога и его себестоимость.
type Product struct {
	SKU  string
	Name string
	Cost decimal.Decimal
}

// SaveMode задаёт режим сохранения тендера.
type SaveMode int

const (
	SaveModeCreate SaveMode = iota + 1
	SaveModeUpdate
)

func (m SaveMode) String() string {
	switch m {
	case SaveModeCreate:
		return "create"
	case SaveModeUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Tender описывает тендер (licitación) и ссылку на клиента.
type Tender struct {
	ID           string
	ClientID     int64
	CreationDate time.Time
	DeliveryDate time.Time
	Lines        []OrderLine
}

// OrderLine описывает позицию тендера.
type OrderLine struct {
	SKU      string
	Quantity int
	Price    decimal.Decimal
}

// OrderLineID возвращает идентификатор позиции, производный от тендера и SKU.
func OrderLineID(tenderID, sku string) string {
	return tenderID + "-" + sku
}

// Revenue возвращает выручку позиции.
func (l OrderLine) Revenue() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// TenderSummary описывает строку результата поиска тендеров.
type TenderSummary struct {
	ID           string
	ClientID     int64
	ClientName   string
	ClientRUT    string
	CreationDate time.Time
	DeliveryDate time.Time
}

// LineDetail описывает позицию тендера с себестоимостью и маржой.
type LineDetail struct {
	SKU         string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	Cost        decimal.Decimal
	Margin      decimal.Decimal
}

// TenderDetail содержит тендер, его позиции и итоговые показатели рентабельности.
type TenderDetail struct {
	TenderSummary
	Lines     []LineDetail
	Revenue   decimal.Decimal
	Cost      decimal.Decimal
	Margin    decimal.Decimal
	MarginPct decimal.Decimal
}

// ClientProfitability содержит рентабельность клиента за период.
type ClientProfitability struct {
	ClientName   string
	Revenue      decimal.Decimal
	TotalMargin  decimal.Decimal
	Tenders      int
	AvgMarginPct decimal.Decimal
}

// ProductMargin содержит суммарную маржу по товару за период.
type ProductMargin struct {
	SKU         string
	ProductName string
	TotalMargin decimal.Decimal
}

// MonthlyTrend содержит выручку и маржу за календарный месяц.
type MonthlyTrend struct {
	Month   time.Time
	Revenue decimal.Decimal
	Margin  decimal.Decimal
}

// DateRange ограничивает выборку по дате создания тендера. Нулевые границы не применяются.
type DateRange struct {
	From time.Time
	To   time.Time
}

// DashboardReport объединяет агрегаты для панели показателей.
type DashboardReport struct {
	Range       DateRange
	Clients     []ClientProfitability
	TopClients  []ClientProfitability
	TopProducts []ProductMargin
	Monthly     []MonthlyTrend
}

// MarginPct возвращает долю маржи в выручке в процентах или ноль при нулевой выручке.
func MarginPct(margin, revenue decimal.Decimal) decimal.Decimal {
	if revenue.IsZero() {
		return decimal.Zero
	}
	return margin.Div(revenue).Mul(decimal.NewFromInt(100)).Round(2)
}
