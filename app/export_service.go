package app

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"

	"funnelab/adapters/excel"
	enginestats "funnelab/adapters/stats"
	"funnelab/domain/experiment"
	"funnelab/internal"
	"funnelab/internal/errors"
	"funnelab/ports"
)

// FunnelEntry is one dashboard funnel row: users reaching the step,
// plus conversion relative to the funnel top and to the previous step.
type FunnelEntry struct {
	Step                  string  `json:"step"`
	StepOrder             int     `json:"step_order"`
	Users                 int     `json:"users"`
	ConversionRatePct     float64 `json:"conversion_rate_pct"`
	StepConversionRatePct float64 `json:"step_conversion_rate_pct"`
}

// VariantEntry is one experiment arm as exported to the dashboard.
type VariantEntry struct {
	Name           string  `json:"name"`
	Users          int     `json:"users"`
	Conversions    int     `json:"conversions"`
	ConversionRate float64 `json:"conversion_rate"`
}

// AnalysisEntry carries the decision-engine outputs under the exact
// keys the dashboard consumes. Every field serializes as a native
// float, bool, or string.
type AnalysisEntry struct {
	AbsoluteUplift float64 `json:"absolute_uplift"`
	RelativeUplift float64 `json:"relative_uplift"`
	PValue         float64 `json:"p_value"`
	CILower        float64 `json:"ci_lower"`
	CIUpper        float64 `json:"ci_upper"`
	IsSignificant  bool    `json:"is_significant"`
	Decision       string  `json:"decision"`
	Reason         string  `json:"reason"`
}

// ExperimentEntry bundles an experiment's variants with its analysis.
// Analysis is nil when the experiment is missing an arm.
type ExperimentEntry struct {
	ExperimentID string         `json:"experiment_id"`
	Variants     []VariantEntry `json:"variants"`
	Analysis     *AnalysisEntry `json:"analysis,omitempty"`
}

// LatencySummary describes how long converted users took from first
// page view to first purchase.
type LatencySummary struct {
	Count         int     `json:"count"`
	MeanSeconds   float64 `json:"mean_seconds"`
	MedianSeconds float64 `json:"median_seconds"`
	P90Seconds    float64 `json:"p90_seconds"`
}

// DashboardData is the single document the static dashboard consumes.
type DashboardData struct {
	GeneratedAt       time.Time                `json:"generated_at"`
	Funnel            []FunnelEntry            `json:"funnel"`
	Experiments       []ExperimentEntry        `json:"experiments"`
	EventSummary      []ports.EventTypeSummary `json:"event_summary"`
	ConversionLatency *LatencySummary          `json:"conversion_latency,omitempty"`
}

// ExportService assembles the dashboard document from warehouse
// aggregates and renders it as JSON, and optionally as an Excel
// workbook or a standalone HTML report.
type ExportService struct {
	reader ports.WarehouseReader
	engine *enginestats.Engine
	logger *internal.Logger
	now    func() time.Time
}

// NewExportService creates a new export service
func NewExportService(reader ports.WarehouseReader, engine *enginestats.Engine, logger *internal.Logger) *ExportService {
	return &ExportService{
		reader: reader,
		engine: engine,
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// BuildDashboard reads all aggregates and assembles the document.
func (s *ExportService) BuildDashboard(ctx context.Context) (*DashboardData, error) {
	funnel, err := s.buildFunnel(ctx)
	if err != nil {
		return nil, err
	}
	experiments, err := s.buildExperiments(ctx)
	if err != nil {
		return nil, err
	}
	summary, err := s.reader.EventSummary(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read event summary")
	}
	latency, err := s.buildLatency(ctx)
	if err != nil {
		return nil, err
	}

	return &DashboardData{
		GeneratedAt:       s.now().UTC(),
		Funnel:            funnel,
		Experiments:       experiments,
		EventSummary:      summary,
		ConversionLatency: latency,
	}, nil
}

// ExportJSON writes the dashboard document as indented JSON.
func (s *ExportService) ExportJSON(ctx context.Context, outputPath string) (*DashboardData, error) {
	data, err := s.BuildDashboard(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode dashboard data")
	}
	if err := writeFile(outputPath, payload); err != nil {
		return nil, err
	}
	s.logger.Info("dashboard data exported to %s", outputPath)
	return data, nil
}

// ExportExcel writes experiment results and the funnel to a workbook.
func (s *ExportService) ExportExcel(ctx context.Context, outputPath string) error {
	data, err := s.BuildDashboard(ctx)
	if err != nil {
		return err
	}
	results := s.analyzedResults(ctx)
	if err := excel.NewResultWriter().Write(outputPath, results, toExcelFunnel(data.Funnel)); err != nil {
		return errors.Wrap(err, "failed to write Excel workbook")
	}
	s.logger.Info("dashboard workbook exported to %s", outputPath)
	return nil
}

// ExportHTML renders every experiment report as markdown and converts
// the lot to a standalone HTML page.
func (s *ExportService) ExportHTML(ctx context.Context, outputPath string) error {
	results := s.analyzedResults(ctx)
	if len(results) == 0 {
		s.logger.Warn("no experiment results to render")
	}

	var md strings.Builder
	md.WriteString("# Experiment Results\n\n")
	for _, r := range results {
		md.WriteString(experiment.FormatMarkdown(r))
		md.WriteString("\n")
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	body := markdown.ToHTML([]byte(md.String()), p, renderer)

	page := fmt.Sprintf("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>Experiment Results</title></head><body>\n%s</body></html>\n", body)
	if err := writeFile(outputPath, []byte(page)); err != nil {
		return err
	}
	s.logger.Info("experiment report exported to %s", outputPath)
	return nil
}

func (s *ExportService) buildFunnel(ctx context.Context) ([]FunnelEntry, error) {
	steps, err := s.reader.FunnelSteps(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read funnel steps")
	}
	if len(steps) == 0 || steps[0].Users == 0 {
		return []FunnelEntry{}, nil
	}

	total := steps[0].Users
	entries := make([]FunnelEntry, 0, len(steps))
	prev := -1
	for _, step := range steps {
		entry := FunnelEntry{
			Step:              step.Step,
			StepOrder:         step.StepOrder,
			Users:             step.Users,
			ConversionRatePct: round2(float64(step.Users) * 100.0 / float64(total)),
		}
		if prev < 0 {
			entry.StepConversionRatePct = 100.0
		} else if prev > 0 {
			entry.StepConversionRatePct = round2(float64(step.Users) * 100.0 / float64(prev))
		}
		prev = step.Users
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *ExportService) buildExperiments(ctx context.Context) ([]ExperimentEntry, error) {
	counts, err := s.reader.ExperimentCounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read experiment counts")
	}

	byExperiment := make(map[string]*ExperimentEntry)
	variants := make(map[string]map[string]experiment.VariantStats)
	order := []string{}

	for _, row := range counts {
		entry, ok := byExperiment[row.ExperimentID]
		if !ok {
			entry = &ExperimentEntry{ExperimentID: row.ExperimentID}
			byExperiment[row.ExperimentID] = entry
			variants[row.ExperimentID] = make(map[string]experiment.VariantStats)
			order = append(order, row.ExperimentID)
		}
		vs, err := experiment.NewVariantStats(row.Variant, row.Users, row.Conversions)
		if err != nil {
			s.logger.Warn("skipping variant %s/%s: %v", row.ExperimentID, row.Variant, err)
			continue
		}
		variants[row.ExperimentID][row.Variant] = vs
		entry.Variants = append(entry.Variants, VariantEntry{
			Name:           vs.Name,
			Users:          vs.Users,
			Conversions:    vs.Conversions,
			ConversionRate: roundTo6(vs.ConversionRate()),
		})
	}

	sort.Strings(order)
	entries := make([]ExperimentEntry, 0, len(order))
	for _, id := range order {
		entry := byExperiment[id]
		control, hasControl := variants[id][VariantControl]
		treatment, hasTreatment := variants[id][VariantTreatment]
		if hasControl && hasTreatment {
			r := s.engine.Analyze(id, control, treatment)
			entry.Analysis = &AnalysisEntry{
				AbsoluteUplift: r.AbsoluteUplift,
				RelativeUplift: r.RelativeUplift,
				PValue:         r.PValue,
				CILower:        r.CILower,
				CIUpper:        r.CIUpper,
				IsSignificant:  r.IsSignificant,
				Decision:       string(r.Decision),
				Reason:         r.Reason,
			}
		}
		entries = append(entries, *entry)
	}
	return entries, nil
}

func (s *ExportService) buildLatency(ctx context.Context) (*LatencySummary, error) {
	seconds, err := s.reader.ConversionLatencies(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read conversion latencies")
	}
	if len(seconds) == 0 {
		return nil, nil
	}

	mean, _ := stats.Mean(seconds)
	median, _ := stats.Median(seconds)
	p90, _ := stats.Percentile(seconds, 90)
	return &LatencySummary{
		Count:         len(seconds),
		MeanSeconds:   round2(mean),
		MedianSeconds: round2(median),
		P90Seconds:    round2(p90),
	}, nil
}

// analyzedResults reruns the full analysis for rendering paths. Errors
// degrade to an empty result set; the caller already logged the export
// intent and JSON export is the canonical output.
func (s *ExportService) analyzedResults(ctx context.Context) []experiment.Result {
	analyzer := NewAnalyzerService(s.reader, s.engine, s.logger)
	results, err := analyzer.AnalyzeAll(ctx)
	if err != nil {
		s.logger.Error("analysis failed during export: %v", err)
		return nil
	}
	return results
}

func toExcelFunnel(entries []FunnelEntry) []excel.FunnelRow {
	rows := make([]excel.FunnelRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, excel.FunnelRow{
			Step:              e.Step,
			Users:             e.Users,
			ConversionRatePct: e.ConversionRatePct,
		})
	}
	return rows
}

func writeFile(path string, payload []byte) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create output directory %s", dir)
		}
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func roundTo6(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
