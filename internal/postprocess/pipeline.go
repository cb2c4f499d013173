package postprocess

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/halfamerica/tractcut/internal/model"
)

// Config controls the dissolve → simplify → export pipeline.
type Config struct {
	SimplifyTolerance float64 // meters in the working projection
	Quantization      float64
	OutputDir         string
	Workers           int // 0 means NumCPU
}

// Output is the pipeline result: one export per successfully processed λ,
// the combined multi-object file, and the per-λ failures that were
// isolated from the rest of the run.
type Output struct {
	Exports      []model.ExportResult
	CombinedPath string
	Failed       map[float64]string
}

// Process runs the pipeline for every successful λ entry of a sweep.
// Stages are independent per λ and run concurrently; a geometry failure in
// one λ never blocks the others.
func Process(ctx context.Context, gd *model.GraphData, sr *model.SweepResult, cfg Config) (*Output, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	quant := cfg.Quantization
	if quant == 0 {
		quant = DefaultQuantization
	}

	log := zap.L().With(zap.String("component", "postprocess"))

	type stageOut struct {
		entry     *model.LambdaEntry
		dissolved *model.DissolveResult
		simple    *model.SimplifyResult
		err       error
	}
	stages := make([]stageOut, len(sr.Entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range sr.Entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry := &sr.Entries[i]
			stages[i].entry = entry
			if !entry.Succeeded {
				stages[i].err = eris.Errorf("lambda %g was not solved", entry.Lambda)
				return nil
			}

			d, err := Dissolve(gd.Areas, entry.Search.Result.Selected)
			if err != nil {
				stages[i].err = err
				return nil
			}
			s, err := Simplify(d.Geometry, cfg.SimplifyTolerance)
			if err != nil {
				stages[i].err = err
				return nil
			}
			stages[i].dissolved = d
			stages[i].simple = s

			log.Info("postprocessed lambda",
				zap.Float64("lambda", entry.Lambda),
				zap.Int("parts", d.NumParts),
				zap.Int("vertices_before", s.OriginalVertexCount),
				zap.Int("vertices_after", s.SimplifiedVertexCount),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Output{Failed: make(map[float64]string)}
	var combined []TopoInput

	for i := range stages {
		st := &stages[i]
		if st.err != nil {
			out.Failed[st.entry.Lambda] = st.err.Error()
			log.Warn("postprocess failed for lambda",
				zap.Float64("lambda", st.entry.Lambda),
				zap.String("error", st.err.Error()),
			)
			continue
		}

		meta := Metadata{
			LambdaValue:        st.entry.Lambda,
			PopulationSelected: st.entry.Search.Result.SelectedPopulation,
			TotalPopulation:    st.entry.Search.Result.TotalPopulation,
			AreaSqm:            st.dissolved.TotalAreaSqm,
			NumParts:           st.dissolved.NumParts,
			TotalAreaAllSqm:    st.entry.Search.Result.TotalArea,
		}

		path := filepath.Join(cfg.OutputDir, lambdaFileName(st.entry.Lambda))
		res, err := Export(st.simple.Geometry, path, meta, DefaultObjectName, quant)
		if err != nil {
			out.Failed[st.entry.Lambda] = err.Error()
			continue
		}
		out.Exports = append(out.Exports, *res)

		combined = append(combined, TopoInput{
			Name:       lambdaObjectName(st.entry.Lambda),
			Geometry:   st.simple.Geometry,
			Properties: meta.properties(),
		})
	}

	if len(out.Exports) == 0 {
		return nil, eris.Wrap(model.ErrGeometry, "postprocess: every lambda failed")
	}

	combinedPath := filepath.Join(cfg.OutputDir, "combined.json")
	if _, err := ExportCombined(combined, combinedPath, quant); err != nil {
		return nil, err
	}
	out.CombinedPath = combinedPath

	log.Info("export complete",
		zap.Int("files", len(out.Exports)),
		zap.String("combined", combinedPath),
	)
	return out, nil
}

func lambdaFileName(lambda float64) string {
	return fmt.Sprintf("lambda_%.2f.json", lambda)
}

func lambdaObjectName(lambda float64) string {
	return fmt.Sprintf("lambda_%.2f", lambda)
}
