package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pricedrp9/pulse-map/internal/engine"
	"github.com/pricedrp9/pulse-map/internal/models"
	"github.com/pricedrp9/pulse-map/internal/slot"
	appErrors "github.com/pricedrp9/pulse-map/pkg/errors"
	"github.com/pricedrp9/pulse-map/pkg/export"
)

// ExportService renders a pulse's results: the availability heatmap as
// CSV/PDF, and the confirmed selection as an iCalendar feed.
type ExportService struct {
	pulses  *PulseService
	marks   markRepository
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	ics     *export.ICSExporter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(pulses *PulseService, marks markRepository, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		pulses:  pulses,
		marks:   marks,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		ics:     export.NewICSExporter(),
		metrics: metrics,
		logger:  logger,
	}
}

// heatmapDataset aggregates the pulse's marks and lays them out as a table
// ordered by slot time.
func (s *ExportService) heatmapDataset(ctx context.Context, pulseID string) (*models.Pulse, export.Dataset, error) {
	pulse, err := s.pulses.Get(ctx, pulseID)
	if err != nil {
		return nil, export.Dataset{}, err
	}
	rows, err := s.marks.ListByPulse(ctx, pulseID)
	if err != nil {
		return nil, export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}

	started := time.Now()
	heat := engine.Aggregate(rows, "", pulse.Mode, pulse.Location())
	s.metrics.ObserveAggregate(time.Since(started))

	keys := make([]slot.Key, 0, len(heat.Counts))
	for key := range heat.Counts {
		keys = append(keys, key)
	}
	loc := pulse.Location()
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Interval(pulse.Mode, loc).Start.Before(keys[j].Interval(pulse.Mode, loc).Start)
	})

	dataset := export.Dataset{Headers: []string{"Slot", "Count", "Tier", "Participants"}}
	for _, key := range keys {
		iv := key.Interval(pulse.Mode, loc)
		label := iv.Start.Format("Mon Jan 2 2006 15:04")
		if pulse.Mode == slot.ModeDates {
			label = iv.Start.Format("Mon Jan 2 2006")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Slot":         label,
			"Count":        fmt.Sprintf("%d", heat.Count(key)),
			"Tier":         heat.Tier(key).String(),
			"Participants": strings.Join(heat.NamesFor(key), ", "),
		})
	}
	return pulse, dataset, nil
}

// RenderCSV exports the heatmap as CSV.
func (s *ExportService) RenderCSV(ctx context.Context, pulseID string) ([]byte, error) {
	_, dataset, err := s.heatmapDataset(ctx, pulseID)
	if err != nil {
		return nil, err
	}
	out, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return out, nil
}

// RenderPDF exports the heatmap as a printable summary.
func (s *ExportService) RenderPDF(ctx context.Context, pulseID string) ([]byte, error) {
	pulse, dataset, err := s.heatmapDataset(ctx, pulseID)
	if err != nil {
		return nil, err
	}
	title := pulse.Title
	if title == "" {
		title = "Pulse Results"
	}
	out, err := s.pdf.Render(dataset, title)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return out, nil
}

// RenderICS exports the confirmed selection as an iCalendar document. A
// pulse still in voting has nothing to publish.
func (s *ExportService) RenderICS(ctx context.Context, pulseID string) ([]byte, error) {
	pulse, err := s.pulses.Get(ctx, pulseID)
	if err != nil {
		return nil, err
	}
	if pulse.Status != models.StatusConfirmed || len(pulse.FinalizedSelection) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "pulse is not confirmed yet")
	}

	summary := pulse.Title
	if summary == "" {
		summary = "Pulse Event"
	}
	entries := make([]export.CalendarEntry, 0, len(pulse.FinalizedSelection))
	for _, iv := range pulse.FinalizedSelection {
		entries = append(entries, export.CalendarEntry{
			Summary:     summary,
			Description: "Confirmed via Pulse Map.",
			Start:       iv.Start,
			End:         iv.End,
		})
	}
	out, err := s.ics.Render(entries)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
	}
	return out, nil
}
