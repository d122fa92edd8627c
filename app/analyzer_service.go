package app

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"funnelab/adapters/stats"
	"funnelab/domain/experiment"
	"funnelab/internal"
	"funnelab/internal/errors"
	"funnelab/ports"
)

// Variant labels the aggregation queries produce. An experiment needs
// both arms before it can be analyzed.
const (
	VariantControl   = "control"
	VariantTreatment = "treatment"
)

// analyzeConcurrency bounds how many experiments are analyzed at once.
// The engine is pure CPU work, so a small limit is plenty.
const analyzeConcurrency = 4

// AnalyzerService turns warehouse aggregates into experiment decisions.
type AnalyzerService struct {
	reader ports.WarehouseReader
	engine *stats.Engine
	logger *internal.Logger
}

// NewAnalyzerService creates a new analyzer service
func NewAnalyzerService(reader ports.WarehouseReader, engine *stats.Engine, logger *internal.Logger) *AnalyzerService {
	return &AnalyzerService{
		reader: reader,
		engine: engine,
		logger: logger.Named("analyzer"),
	}
}

// AnalyzeAll runs the decision engine for every experiment in the
// warehouse that has both a control and a treatment arm. Experiments
// missing an arm are skipped with a warning. Results come back sorted
// by experiment id so repeated runs are comparable.
func (s *AnalyzerService) AnalyzeAll(ctx context.Context) ([]experiment.Result, error) {
	counts, err := s.reader.ExperimentCounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read experiment counts")
	}

	pairs := s.pairVariants(counts)
	if len(pairs) == 0 {
		s.logger.Info("no analyzable experiments in warehouse")
		return nil, nil
	}

	results := make([]experiment.Result, len(pairs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(analyzeConcurrency)
	for i := range pairs {
		i := i
		g.Go(func() error {
			p := pairs[i]
			results[i] = s.engine.Analyze(p.id, p.control, p.treatment)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ExperimentID < results[j].ExperimentID
	})
	return results, nil
}

type variantPair struct {
	id        string
	control   experiment.VariantStats
	treatment experiment.VariantStats
}

// pairVariants groups aggregation rows by experiment and keeps only
// experiments with valid control and treatment counts.
func (s *AnalyzerService) pairVariants(counts []ports.VariantCount) []variantPair {
	byExperiment := make(map[string]map[string]experiment.VariantStats)
	order := []string{}

	for _, row := range counts {
		variants, ok := byExperiment[row.ExperimentID]
		if !ok {
			variants = make(map[string]experiment.VariantStats)
			byExperiment[row.ExperimentID] = variants
			order = append(order, row.ExperimentID)
		}
		vs, err := experiment.NewVariantStats(row.Variant, row.Users, row.Conversions)
		if err != nil {
			s.logger.Warn("skipping variant %s/%s: %v", row.ExperimentID, row.Variant, err)
			continue
		}
		variants[row.Variant] = vs
	}

	var pairs []variantPair
	for _, id := range order {
		variants := byExperiment[id]
		control, hasControl := variants[VariantControl]
		treatment, hasTreatment := variants[VariantTreatment]
		if !hasControl || !hasTreatment {
			s.logger.Warn("skipping %s: missing control or treatment variant", id)
			continue
		}
		pairs = append(pairs, variantPair{id: id, control: control, treatment: treatment})
	}
	return pairs
}
