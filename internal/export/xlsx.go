// Package export renders client lists as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bcnelson/salon-crm/internal/clientview"
	"github.com/bcnelson/salon-crm/internal/domain"
)

// SheetName is the name of the single worksheet in an export.
const SheetName = "Clients"

// ClientHeader lists the export columns in order.
var ClientHeader = []string{
	"Name",
	"Phone",
	"Email",
	"Status",
	"Tags",
	"Last Visit",
	"Lifetime Value",
}

var columnWidths = []float64{28, 18, 30, 14, 30, 20, 16}

// ClientsXLSX renders items, already filtered and ordered, as an xlsx workbook.
func ClientsXLSX(items []domain.ClientListItem) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F2E6FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ClientHeader {
		if err := setCell(f, col+1, 1, header); err != nil {
			f.Close()
			return nil, err
		}
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidths[col]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "G1", headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, item := range items {
		row := i + 2
		values := []any{
			clientview.FullName(item.FirstName, item.LastName),
			item.Phone,
			deref(item.Email),
			item.Status.Name,
			tagNames(item.Tags),
			nil,
			nil,
		}
		if item.LastVisitAt != nil {
			values[5] = item.LastVisitAt.UTC().Format("2006-01-02 15:04")
		}
		if item.LifetimeValue != nil {
			values[6] = *item.LifetimeValue
		}

		for col, value := range values {
			if value == nil || value == "" {
				continue
			}
			if err := setCell(f, col+1, row, value); err != nil {
				f.Close()
				return nil, err
			}
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, value); err != nil {
		return fmt.Errorf("failed to set cell %s: %w", cell, err)
	}
	return nil
}

func tagNames(tags []domain.Tag) string {
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}
	return strings.Join(names, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
