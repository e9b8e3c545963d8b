package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/repair-service/pkg/util"
)

const (
	movementSheet     = "Sheet1"
	maxExportRows     = 10000
	XLSXContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	movementExportTag = "stock-movements"
)

var movementHeadings = []string{"At", "Part", "Type", "Quantity", "Reference", "Notes", "Actor"}

// ExportMovements renders the filtered ledger as an xlsx workbook, newest first.
func (s *InventoryService) ExportMovements(ctx context.Context, query MovementQuery) ([]byte, string, error) {
	filter := query.filter(pageAll(maxExportRows))
	movements, total, err := s.store.Repositories().Movements.List(ctx, filter)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, heading := range movementHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(movementSheet, cell, heading); err != nil {
			return nil, "", apperrors.MapError(err)
		}
	}
	for i, m := range movements {
		row := i + 2
		values := []any{
			m.At.UTC().Format(time.RFC3339),
			m.PartNameSnapshot,
			string(m.Type),
			m.Quantity,
			m.Reference,
			m.Notes,
			m.ActorID,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(movementSheet, cell, value); err != nil {
				return nil, "", apperrors.MapError(err)
			}
		}
	}
	if total > len(movements) {
		s.logger.Warn("movement export truncated", zap.Int("total", total), zap.Int("exported", len(movements)))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", apperrors.MapError(err)
	}
	filename := fmt.Sprintf("%s-%s.xlsx", movementExportTag, time.Now().UTC().Format("20060102-150405"))
	return buf.Bytes(), filename, nil
}
