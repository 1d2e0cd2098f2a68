package dictionary

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"furiganafmt/align"
	"furiganafmt/logger"
	"furiganafmt/model"
)

// ErrSameDir is returned when the output dir would overwrite the source dictionaries.
var ErrSameDir = errors.New("output dir is the dict dir")

// Options configure a Processor.
type Options struct {
	DictDir   string
	OutputDir string
	// Workers bounds how many records are aligned at once.
	Workers int
	// ReviewFile is the name (without .json) of the review log in OutputDir; empty disables it.
	ReviewFile string
}

// Summary counts what a run did.
type Summary struct {
	Files       int `json:"files"`
	Skipped     int `json:"skipped"`
	Records     int `json:"records"`
	Aligned     int `json:"aligned"`
	Fallbacks   int `json:"fallbacks"`
	Unreachable int `json:"unreachable"`
	Errors      int `json:"errors"`
}

// Add accumulates o into s.
func (s *Summary) Add(o Summary) {
	s.Files += o.Files
	s.Skipped += o.Skipped
	s.Records += o.Records
	s.Aligned += o.Aligned
	s.Fallbacks += o.Fallbacks
	s.Unreachable += o.Unreachable
	s.Errors += o.Errors
}

// Processor rewrites every dictionary file in a directory.
type Processor struct {
	aligner Aligner
	opts    Options
	logger  *zap.SugaredLogger
}

// NewProcessor returns a processor. Workers below 1 are treated as 1.
func NewProcessor(a Aligner, opts Options, log *zap.SugaredLogger) *Processor {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Processor{aligner: a, opts: opts, logger: logger.OrNop(log)}
}

// Run processes all files in DictDir that match a rule and writes them to OutputDir.
func (p *Processor) Run(ctx context.Context) (Summary, error) {
	var total Summary

	if same, err := samePath(p.opts.DictDir, p.opts.OutputDir); err != nil {
		return total, err
	} else if same {
		return total, errors.Wrapf(ErrSameDir, "%s", p.opts.DictDir)
	}

	entries, err := os.ReadDir(p.opts.DictDir)
	if err != nil {
		return total, errors.Wrapf(err, "read dict dir %s", p.opts.DictDir)
	}
	// output of an earlier run is regenerated, not merged
	if err := logger.InitLogs(p.opts.OutputDir); err != nil {
		return total, err
	}
	p.logger.Infow("processing dictionaries",
		logger.FieldPath, p.opts.DictDir,
		logger.FieldWorkers, p.opts.Workers,
	)

	review := []model.ReviewEntry{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch rule := MatchRule(name); rule {
		case RuleNotation:
			sum, reviewed, err := p.ProcessFile(ctx, name)
			if err != nil {
				return total, err
			}
			total.Add(sum)
			review = append(review, reviewed...)
		case RuleRomaji:
			p.logger.Infow("skipping file, romaji names are not generated", logger.FieldFile, name)
			total.Skipped++
		}
	}

	if p.opts.ReviewFile != "" {
		if err := logger.LogJSON(p.opts.OutputDir, p.opts.ReviewFile, review); err != nil {
			return total, err
		}
		p.logger.Infow("wrote review file",
			logger.FieldPath, filepath.Join(p.opts.OutputDir, p.opts.ReviewFile+".json"),
			logger.FieldCount, len(review),
		)
	}
	return total, nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, errors.Wrapf(err, "resolve %s", a)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, errors.Wrapf(err, "resolve %s", b)
	}
	return absA == absB, nil
}

// ProcessFile rewrites the notation of every record in one file and writes the result.
func (p *Processor) ProcessFile(ctx context.Context, name string) (Summary, []model.ReviewEntry, error) {
	src := filepath.Join(p.opts.DictDir, name)
	f, err := Load(src)
	if err != nil {
		return Summary{}, nil, err
	}

	sum := Summary{Files: 1}
	results := make([]*align.Result, len(f.Keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, key := range f.Keys {
		rec := f.Records[key]
		if len(rec.Trans) == 0 {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			annotation, rest := SplitTrans(rec.Trans[0])
			res := p.aligner.Align(gctx, NormalizeAnnotation(annotation))
			rec.Trans[0] = rest
			rec.SetNotation(res.Text)
			results[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, nil, errors.Wrapf(err, "process %s", name)
	}

	var review []model.ReviewEntry
	for i, res := range results {
		if res == nil {
			continue
		}
		sum.Records++
		if res.Outcome != align.Success {
			p.logger.Debugw("record not aligned",
				logger.FieldFile, name,
				logger.FieldKey, f.Keys[i],
				logger.FieldOutcome, res.Outcome.String(),
			)
		}
		switch res.Outcome {
		case align.Success:
			sum.Aligned++
		case align.Fallback:
			sum.Fallbacks++
		case align.Unreachable:
			sum.Unreachable++
		}
		if res.AlignErr != nil {
			sum.Errors++
			review = append(review, model.ReviewEntry{
				File:     name,
				Key:      f.Keys[i],
				Raw:      res.AlignErr.Raw,
				Kind:     res.AlignErr.Kind.String(),
				Notation: res.Text,
			})
		}
	}

	dst := filepath.Join(p.opts.OutputDir, name)
	if err := f.Save(dst); err != nil {
		return Summary{}, nil, err
	}
	p.logger.Infow("generated",
		logger.FieldFile, dst,
		logger.FieldCount, sum.Records,
		logger.FieldFallbacks, sum.Fallbacks,
		logger.FieldErrorCount, sum.Errors,
	)
	return sum, review, nil
}

// AlignAll aligns raw annotations concurrently and returns results in input order.
func AlignAll(ctx context.Context, a Aligner, raws []string, workers int) ([]align.Result, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]align.Result, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, raw := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = a.Align(gctx, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
