package service

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"telemetrygen/internal/models"
)

// CSVTimeLayout is ISO-8601 with microseconds and a zone offset.
const CSVTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

var csvHeader = []string{"recorded_at", "voltage", "temp", "operational", "source_file", "status"}

// WriteCSV writes the batch with a header row to path, replacing any
// existing file.
func WriteCSV(path string, records []models.TelemetryRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			record.RecordedAt.Format(CSVTimeLayout),
			fmt.Sprintf("%.2f", record.Voltage),
			fmt.Sprintf("%.2f", record.Temp),
			strings.ToUpper(strconv.FormatBool(record.Operational)),
			record.SourceFile,
			string(record.Status),
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	return file.Close()
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(path string) ([]models.TelemetryRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(csvHeader)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("missing header in %s", path)
	}

	records := make([]models.TelemetryRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		record, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, record)
	}

	return records, nil
}

func parseCSVRow(row []string) (models.TelemetryRecord, error) {
	recordedAt, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return models.TelemetryRecord{}, fmt.Errorf("recorded_at: %w", err)
	}
	voltage, err := strconv.ParseFloat(row[1], 64)
	if err != nil {
		return models.TelemetryRecord{}, fmt.Errorf("voltage: %w", err)
	}
	temp, err := strconv.ParseFloat(row[2], 64)
	if err != nil {
		return models.TelemetryRecord{}, fmt.Errorf("temp: %w", err)
	}

	var operational bool
	switch row[3] {
	case "TRUE":
		operational = true
	case "FALSE":
	default:
		return models.TelemetryRecord{}, fmt.Errorf("operational: unexpected value %q", row[3])
	}

	return models.TelemetryRecord{
		RecordedAt:  recordedAt,
		Voltage:     voltage,
		Temp:        temp,
		Operational: operational,
		SourceFile:  row[4],
		Status:      models.Status(row[5]),
	}, nil
}
