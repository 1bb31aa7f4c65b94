package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/transmeralda/fleetdocs/internal/entity"
	"github.com/transmeralda/fleetdocs/internal/reconcile"
)

// DriverLister is the repository surface exports read from.
type DriverLister interface {
	List(ctx context.Context) ([]*entity.Driver, error)
}

// Service produces XLSX workbooks for back-office reporting.
type Service struct {
	drivers DriverLister
	logger  *slog.Logger
}

func NewService(drivers DriverLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{drivers: drivers, logger: logger}
}

// ExportDriversXLSX returns a workbook with one row per driver.
func (s *Service) ExportDriversXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	drivers, err := s.drivers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query drivers: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Drivers"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Last Name",
		"First Name",
		"ID Type",
		"Identity Number",
		"Email",
		"Phone",
		"Birth Date",
		"Blood Type",
		"Work Site",
		"Hire Date",
		"Contract Term",
		"Base Salary",
		"Permit Number",
		"Permit Classes",
		"Status",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, d := range drivers {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, d.LastName)
		write(2, d.FirstName)
		write(3, d.IDType)
		write(4, d.IdentityNumber)
		write(5, d.Email)
		write(6, d.Phone)
		write(7, d.BirthDate)
		write(8, d.BloodType)
		write(9, d.WorkSite)
		write(10, d.HireDate)
		write(11, d.ContractTerm)
		write(12, d.BaseSalary)
		if d.Permit != nil {
			write(13, d.Permit.Number)
			write(14, permitClasses(d.Permit))
		}
		write(15, d.Status)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 18)
	_ = f.SetColWidth(sheet, "C", "C", 8)
	_ = f.SetColWidth(sheet, "D", "D", 16)
	_ = f.SetColWidth(sheet, "E", "E", 28)
	_ = f.SetColWidth(sheet, "F", "F", 14)
	_ = f.SetColWidth(sheet, "G", "K", 14)
	_ = f.SetColWidth(sheet, "L", "L", 12)
	_ = f.SetColWidth(sheet, "M", "N", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(drivers),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportDeltasXLSX renders a reconciliation delta log as a workbook,
// one row per changed field. Used as an audit aid after update jobs.
func (s *Service) ExportDeltasXLSX(deltas []reconcile.Delta) ([]byte, error) {
	f := excelize.NewFile()
	const sheet = "Deltas"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	_ = f.DeleteSheet("Sheet1")

	headers := []string{"Field", "Previous", "New", "Source"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, d := range deltas {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, d.Field)
		write(2, fmt.Sprintf("%v", d.Previous))
		write(3, fmt.Sprintf("%v", d.New))
		write(4, string(d.Source))
	}
	_ = f.SetColWidth(sheet, "A", "D", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// permitClasses renders the class list as "C1 (2029-06-01), B1".
func permitClasses(p *entity.Permit) string {
	parts := make([]string, 0, len(p.Classes))
	for _, c := range p.Classes {
		if c.ValidUntil != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", c.Class, c.ValidUntil))
		} else {
			parts = append(parts, c.Class)
		}
	}
	return strings.Join(parts, ", ")
}
