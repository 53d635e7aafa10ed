package utils

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"telemetrygen/internal/models"
)

const (
	SheetName = "Telemetry"

	ExcelTimeLayout = "2006-01-02 15:04:05"
	maxColumnWidth  = 50
)

var excelHeaders = []string{"Recorded At", "Voltage (V)", "Temperature (°C)", "Operational", "Source File", "Status"}

// StatusFills maps a status to the background color of its cell. Statuses
// without an entry are left unstyled.
var StatusFills = map[models.Status]string{
	models.StatusOK:      "#C6EFCE",
	models.StatusWarning: "#FFEB9C",
	models.StatusError:   "#FFC7CE",
}

// CreateExcelFile создает Excel файл с данными телеметрии
func CreateExcelFile(filepath string, records []models.TelemetryRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	numberStyle, err := getNumberStyle(f, "0.00")
	if err != nil {
		return fmt.Errorf("number style: %w", err)
	}

	statusStyles, err := getStatusStyles(f)
	if err != nil {
		return fmt.Errorf("status style: %w", err)
	}

	widths := make([]int, len(excelHeaders))
	track := func(col int, text string) {
		if n := utf8.RuneCountInString(text); n > widths[col] {
			widths[col] = n
		}
	}

	// Заголовки
	for i, header := range excelHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return err
		}
		track(i, header)
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", headerStyle); err != nil {
		return err
	}

	// Данные
	for rowIdx, record := range records {
		rowNum := rowIdx + 2

		recordedAt := record.RecordedAt.Format(ExcelTimeLayout)
		operational := "NO"
		if record.Operational {
			operational = "YES"
		}

		values := []interface{}{
			recordedAt,
			record.Voltage,
			record.Temp,
			operational,
			record.SourceFile,
			string(record.Status),
		}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", rowNum), &values); err != nil {
			return err
		}

		track(0, recordedAt)
		track(1, fmt.Sprintf("%.2f", record.Voltage))
		track(2, fmt.Sprintf("%.2f", record.Temp))
		track(3, operational)
		track(4, record.SourceFile)
		track(5, string(record.Status))

		if err := f.SetCellStyle(SheetName, fmt.Sprintf("B%d", rowNum), fmt.Sprintf("C%d", rowNum), numberStyle); err != nil {
			return err
		}

		if style, ok := statusStyles[record.Status]; ok {
			cell := fmt.Sprintf("F%d", rowNum)
			if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
				return err
			}
		}
	}

	// Авто-ширина колонок
	for i, width := range widths {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(SheetName, colName, colName, ColumnWidth(width)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return f.SaveAs(filepath)
}

// ColumnWidth pads the longest cell text of a column and caps the result.
func ColumnWidth(longest int) float64 {
	width := longest + 2
	if width > maxColumnWidth {
		width = maxColumnWidth
	}
	return float64(width)
}

func getNumberStyle(f *excelize.File, format string) (int, error) {
	return f.NewStyle(&excelize.Style{
		CustomNumFmt: &format,
	})
}

func getStatusStyles(f *excelize.File) (map[models.Status]int, error) {
	styles := make(map[models.Status]int, len(StatusFills))
	for status, color := range StatusFills {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{color},
				Pattern: 1,
			},
		})
		if err != nil {
			return nil, err
		}
		styles[status] = style
	}
	return styles, nil
}
