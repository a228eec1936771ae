package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/kaiken/licitaciones/internal/model"
	"github.com/kaiken/licitaciones/internal/validation"
)

const (
	exportSheet       = "Licitaciones"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilePattern = "licitaciones-%s.xlsx"
)

var exportHeader = []any{"ID", "Cliente", "RUT", "Fecha creación", "Fecha entrega"}

// buildTendersWorkbook формирует книгу XLSX со списком тендеров.
func buildTendersWorkbook(tenders []model.TenderSummary) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		_ = f.Close()
		return nil, err
	}

	for i, t := range tenders {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			_ = f.Close()
			return nil, err
		}

		rut, ok := validation.FormatRUT(t.ClientRUT)
		if !ok {
			rut = t.ClientRUT
		}
		row := []any{t.ID, t.ClientName, rut, formatDate(t.CreationDate), formatDate(t.DeliveryDate)}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	return f, nil
}

// ExportTenders выгружает результат поиска тендеров в XLSX.
func (h *Handler) ExportTenders(w http.ResponseWriter, r *http.Request) {
	tenders, err := h.service.SearchTenders(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, "export tenders", err)
		return
	}

	f, err := buildTendersWorkbook(tenders)
	if err != nil {
		h.writeError(w, "export tenders", err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf(exportFilePattern, time.Now().Format(model.DateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := f.Write(w); err != nil {
		h.logger.Error("write xlsx error", zap.Error(err))
	}
}
