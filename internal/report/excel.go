// Package report renders a household's routine history and current
// baselines into an xlsx workbook for care staff.
package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/snarayanan1095/Wellnest/internal/models"
)

var routineHeader = []string{
	"Day",
	"Wake Time",
	"Bed Time",
	"First Kitchen Activity",
	"Bathroom Visits",
	"Active Minutes",
	"Total Events",
}

var baselineHeader = []string{
	"Metric",
	"Mean",
	"Median",
	"Std Dev",
	"Min",
	"Max",
	"Samples",
	"Window Days",
}

// GenerateRoutineReport builds the workbook: one sheet of daily routines,
// one of the current baseline statistics.
func GenerateRoutineReport(householdID string, routines []models.DailyRoutine, baselines *models.BaselineSet) ([]byte, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}

	f := excelize.NewFile()
	// WriteTo needs the file open, so Close only on the error paths.

	routineSheet := "Daily Routines"
	index, err := f.NewSheet(routineSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeHeader(f, routineSheet, routineHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	for i, r := range routines {
		row := i + 2
		values := []interface{}{
			r.Day,
			minuteCell(r.WakeMinute),
			minuteCell(r.BedMinute),
			minuteCell(r.FirstKitchenMinute),
			r.BathroomVisits,
			r.ActiveMinutes,
			r.TotalEvents,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(routineSheet, cell, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell: %w", err)
			}
		}
	}

	baselineSheet := "Baselines"
	if _, err := f.NewSheet(baselineSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := writeHeader(f, baselineSheet, baselineHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	if baselines != nil {
		metrics := make([]models.Metric, 0, len(baselines.Metrics))
		for m := range baselines.Metrics {
			metrics = append(metrics, m)
		}
		sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

		for i, m := range metrics {
			b := baselines.Metrics[m]
			row := i + 2
			values := []interface{}{
				string(b.Metric),
				round1(b.Mean),
				round1(b.Median),
				round1(b.StdDev),
				b.Min,
				b.Max,
				b.SampleCount,
				b.WindowDays,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(baselineSheet, cell, v); err != nil {
					f.Close()
					return nil, fmt.Errorf("failed to set cell: %w", err)
				}
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	for col, title := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("failed to set header: %w", err)
		}
	}
	endCell, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", endCell, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	return nil
}

func minuteCell(m *int) interface{} {
	if m == nil {
		return ""
	}
	return models.FormatMinute(*m)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
