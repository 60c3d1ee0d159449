// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xthemadgenius/SolContracts/internal/service"
)

// Format is the report encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json"; empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// ContentType is the HTTP media type of f.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json; charset=utf-8"
}

// Options filters the exported allocations.
type Options struct {
	Format        Format
	OnlyClaimable bool
	MinTokens     uint64
}

// Row is one allocation line of the report.
type Row struct {
	Contributor       string `json:"contributor"`
	Allocation        string `json:"allocation"`
	Total             uint64 `json:"total"`
	Claimed           uint64 `json:"claimed"`
	Contributed       uint64 `json:"contributed"`
	Vested            uint64 `json:"vested"`
	Claimable         uint64 `json:"claimable"`
	AirdropsCompleted int    `json:"airdrops_completed"`
}

var csvHeaders = []string{
	"contributor", "allocation", "total", "claimed", "contributed",
	"vested", "claimable", "airdrops_completed",
}

func (r Row) csv() []string {
	return []string{
		r.Contributor,
		r.Allocation,
		strconv.FormatUint(r.Total, 10),
		strconv.FormatUint(r.Claimed, 10),
		strconv.FormatUint(r.Contributed, 10),
		strconv.FormatUint(r.Vested, 10),
		strconv.FormatUint(r.Claimable, 10),
		strconv.Itoa(r.AirdropsCompleted),
	}
}

// Summary totals the exported rows.
type Summary struct {
	Allocations      int    `json:"allocations"`
	TotalTokens      uint64 `json:"total_tokens"`
	TotalClaimed     uint64 `json:"total_claimed"`
	TotalContributed uint64 `json:"total_contributed"`
	TotalClaimable   uint64 `json:"total_claimable"`
}

// Report is the JSON document of one export.
type Report struct {
	Presale    string    `json:"presale"`
	ExportTime time.Time `json:"export_time"`
	At         int64     `json:"at"`
	Summary    Summary   `json:"summary"`
	Rows       []Row     `json:"allocations"`
}

// AllocationExporter writes allocation reports of one presale.
type AllocationExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewAllocationExporter(logger *zap.Logger) *AllocationExporter {
	return &AllocationExporter{logger: logger.Named("export"), now: time.Now}
}

// Write filters views and encodes them to w. It returns the number of rows written.
func (e *AllocationExporter) Write(w io.Writer, presale string, views []service.AllocationView, opts Options) (int, error) {
	rows := filterRows(views, opts)

	var err error
	switch opts.Format {
	case FormatCSV:
		err = writeCSV(w, rows)
	case FormatJSON, "":
		report := Report{
			Presale:    presale,
			ExportTime: e.now().UTC(),
			Summary:    summarize(rows),
			Rows:       rows,
		}
		if len(views) > 0 {
			report.At = views[0].At
		}
		err = json.NewEncoder(w).Encode(report)
	default:
		err = fmt.Errorf("unsupported format: %s", opts.Format)
	}
	if err != nil {
		return 0, err
	}

	e.logger.Info("Allocations exported",
		zap.String("presale", presale),
		zap.String("format", string(opts.Format)),
		zap.Int("count", len(rows)))
	return len(rows), nil
}

func filterRows(views []service.AllocationView, opts Options) []Row {
	rows := make([]Row, 0, len(views))
	for _, v := range views {
		if opts.OnlyClaimable && v.Claimable == 0 {
			continue
		}
		if v.Total < opts.MinTokens {
			continue
		}
		rows = append(rows, Row{
			Contributor:       v.Contributor.String(),
			Allocation:        v.Address.String(),
			Total:             v.Total,
			Claimed:           v.Claimed,
			Contributed:       v.Contributed,
			Vested:            v.Vested,
			Claimable:         v.Claimable,
			AirdropsCompleted: v.AirdropsCompleted,
		})
	}
	return rows
}

func summarize(rows []Row) Summary {
	s := Summary{Allocations: len(rows)}
	for _, r := range rows {
		s.TotalTokens += r.Total
		s.TotalClaimed += r.Claimed
		s.TotalContributed += r.Contributed
		s.TotalClaimable += r.Claimable
	}
	return s
}

func writeCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, r := range rows {
		if err := writer.Write(r.csv()); err != nil {
			return fmt.Errorf("failed to write allocation: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
