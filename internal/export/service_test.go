package export

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/transmeralda/fleetdocs/internal/entity"
	"github.com/transmeralda/fleetdocs/internal/reconcile"
)

type staticLister struct {
	drivers []*entity.Driver
}

func (s staticLister) List(context.Context) ([]*entity.Driver, error) {
	return s.drivers, nil
}

func TestExportDriversXLSX(t *testing.T) {
	lister := staticLister{drivers: []*entity.Driver{
		{
			ID:             uuid.New(),
			FirstName:      "CARLOS",
			LastName:       "RUIZ",
			IDType:         "CC",
			IdentityNumber: "79845123",
			WorkSite:       "YOPAL",
			BaseSalary:     1900000,
			Status:         "available",
			Permit: &entity.Permit{
				Number: "555777",
				Classes: []entity.PermitClass{
					{Class: "C1", ValidUntil: "2029-06-01"},
					{Class: "B1"},
				},
			},
		},
	}}
	svc := NewService(lister, slog.New(slog.DiscardHandler))

	out, err := svc.ExportDriversXLSX(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Drivers")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}
	if rows[0][0] != "Last Name" {
		t.Errorf("header = %v", rows[0])
	}
	got := rows[1]
	if got[0] != "RUIZ" || got[3] != "79845123" {
		t.Errorf("row = %v", got)
	}
	if got[13] != "C1 (2029-06-01), B1" {
		t.Errorf("classes = %q", got[13])
	}
}

func TestExportDeltasXLSX(t *testing.T) {
	svc := NewService(staticLister{}, slog.New(slog.DiscardHandler))
	out, err := svc.ExportDeltasXLSX([]reconcile.Delta{
		{Field: "last_name", Previous: "VIEJO", New: "RUIZ", Source: reconcile.SourceExtracted},
		{Field: "base_salary", Previous: 0.0, New: 1900000.0, Source: reconcile.SourceOverride},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Deltas")
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[1][0] != "last_name" || rows[1][2] != "RUIZ" {
		t.Errorf("delta row = %v", rows[1])
	}
}

func TestExportEmptyList(t *testing.T) {
	svc := NewService(staticLister{}, slog.New(slog.DiscardHandler))
	out, err := svc.ExportDriversXLSX(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty workbook bytes")
	}
}
