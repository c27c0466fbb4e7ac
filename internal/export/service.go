package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/brmlabs/renewal-calendar/internal/entity"
)

// XLSXFilename is the fixed download name for the contracts report.
const XLSXFilename = "contracts.xlsx"

// Service produces XLSX bytes for contract report exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ContractsXLSX renders a workbook listing the given contracts, one row per
// record, in input order.
func (s *Service) ContractsXLSX(contracts []*entity.Contract) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Contracts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// drop the default sheet excelize creates
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Contract",
		"Vendor",
		"Start Date",
		"End Date",
		"Renewal Date",
		"Notice Period (days)",
		"Notice Deadline",
		"Status",
		"Needs Review",
		"File",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, c := range contracts {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, c.Display())
		write(2, strOrDash(c.VendorName))
		write(3, dateOrEmpty(c.StartDate))
		write(4, dateOrEmpty(c.EndDate))
		write(5, dateOrEmpty(c.RenewalDate))
		if c.NoticePeriodDays != nil {
			write(6, *c.NoticePeriodDays)
		} else {
			write(6, "")
		}
		write(7, dateOrEmpty(c.NoticeDeadline))
		write(8, string(c.ExtractionStatus))
		write(9, fmt.Sprintf("%t", c.NeedsReview))
		write(10, c.FileName)

		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"contracts", len(contracts),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func strOrDash(p *string) string {
	if p == nil || *p == "" {
		return "—"
	}
	return *p
}

func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
