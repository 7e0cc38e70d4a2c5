package riskscore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/shieldsuite/internal/logging"
)

// DetectionSource is a read-only external reputation service reporting how
// many of its engines flagged an identifier.
type DetectionSource interface {
	Lookup(ctx context.Context, identifier string) (Detections, error)
}

// ProgressFunc is called after each bulk item completes.
type ProgressFunc func(done, total int)

// Scorer is the heuristic risk scorer. It holds no per-call state and is safe
// for concurrent use.
type Scorer struct {
	rules          []Rule
	lookupTimeout  time.Duration
	maxConcurrency int
	source         DetectionSource
	logger         logging.Logger
	now            func() time.Time
}

// NewScorer builds a scorer. source may be nil, in which case only inline
// Descriptor.Detections contribute an external score.
func NewScorer(cfg *Config, source DetectionSource, logger logging.Logger) (*Scorer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = logging.Nop()
	}

	rules := cfg.Rules
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if err := validateRules(rules); err != nil {
		return nil, fmt.Errorf("riskscore: %w", err)
	}
	normalized := make([]Rule, len(rules))
	for i, r := range rules {
		r.Pattern = strings.ToLower(r.Pattern)
		normalized[i] = r
	}

	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 1
	}

	return &Scorer{
		rules:          normalized,
		lookupTimeout:  cfg.LookupTimeout,
		maxConcurrency: maxConc,
		source:         source,
		logger:         logger.With(logging.Field{Key: "component", Value: "risk-scorer"}),
		now:            time.Now,
	}, nil
}

// Rules returns a copy of the active rule table.
func (s *Scorer) Rules() []Rule {
	return append([]Rule(nil), s.rules...)
}

// Assess scores one descriptor. Only ErrInvalidInput is ever returned.
func (s *Scorer) Assess(ctx context.Context, d Descriptor) (*Assessment, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	threats, score := s.scoreLocal(d)

	if det, ok := s.detections(ctx, d); ok && det.Positives > 0 {
		threats = append(threats, externalLabel(det))
		score += det.Positives * externalWeight
	}

	return &Assessment{
		Threats:   threats,
		RiskScore: score,
		RiskLevel: Classify(score),
		IsSafe:    IsSafe(threats, score),
		ScanTime:  s.now().UTC(),
	}, nil
}

// scoreLocal runs the name rules, the size heuristic and the critical
// combinations, in that order.
func (s *Scorer) scoreLocal(d Descriptor) ([]string, int) {
	name := strings.ToLower(d.Name)
	threats := []string{}
	score := 0

	for _, r := range s.rules {
		if strings.Contains(name, r.Pattern) {
			threats = append(threats, r.Label)
			score += r.Weight
		}
	}

	if !d.SizeUnknown {
		if d.SizeBytes < SmallFileThreshold {
			threats = append(threats, smallFileLabel)
			score += smallFilePenalty
		} else if d.SizeBytes > LargeFileThreshold {
			threats = append(threats, largeFileLabel)
			score += largeFilePenalty
		}
	}

	// Combinations only fire on names that are already suspicious.
	if strings.Contains(name, bankMarker) && score > 0 {
		threats = append(threats, bankLabel)
		score += bankPenalty
	}
	if strings.Contains(name, payMarker) && score > 0 {
		threats = append(threats, payLabel)
		score += payPenalty
	}

	return threats, score
}

// detections resolves the external counts for d: inline counts win, then the
// configured source. Any lookup failure yields ok=false.
func (s *Scorer) detections(ctx context.Context, d Descriptor) (Detections, bool) {
	if d.Detections != nil {
		return *d.Detections, true
	}
	if s.source == nil {
		return Detections{}, false
	}

	lookupCtx := ctx
	if s.lookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, s.lookupTimeout)
		defer cancel()
	}

	id := d.Identifier()
	det, err := s.source.Lookup(lookupCtx, id)
	if err == nil {
		err = det.Validate()
	}
	if err != nil {
		s.logger.Warn("external lookup skipped",
			logging.Field{Key: "identifier", Value: id},
			logging.Field{Key: "error", Value: fmt.Errorf("%w: %w", ErrLookupUnavailable, err).Error()})
		return Detections{}, false
	}
	return det, true
}

// AssessAll scores every descriptor and returns results in input order.
func (s *Scorer) AssessAll(ctx context.Context, ds []Descriptor) (*BulkResult, error) {
	return s.AssessAllProgress(ctx, ds, nil)
}

// AssessAllProgress is AssessAll with a per-item completion callback. Items
// are scored in parallel up to the configured concurrency. The whole batch
// is validated first; a malformed item fails the batch before any scoring.
// Canceling ctx aborts the batch with the context's error.
func (s *Scorer) AssessAllProgress(ctx context.Context, ds []Descriptor, progress ProgressFunc) (*BulkResult, error) {
	for i, d := range ds {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, d.Name, err)
		}
	}

	results := make([]*Assessment, len(ds))
	done := make(chan struct{}, len(ds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	var reporter errgroup.Group
	if progress != nil {
		reporter.Go(func() error {
			for n := 1; n <= len(ds); n++ {
				if _, ok := <-done; !ok {
					return nil
				}
				progress(n, len(ds))
			}
			return nil
		})
	}

	for i := range ds {
		g.Go(func() error {
			// A canceled batch stops taking new items.
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := s.Assess(gctx, ds[i])
			if err != nil {
				return err
			}
			results[i] = a
			done <- struct{}{}
			return nil
		})
	}

	err := g.Wait()
	close(done)
	_ = reporter.Wait()
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("bulk assessment: %w", err)
	}

	s.logger.Debug("bulk assessment finished", logging.Field{Key: "count", Value: len(ds)})
	return &BulkResult{Results: results, Summary: Summarize(results)}, nil
}

// Summarize counts totals over a set of assessments.
func Summarize(results []*Assessment) Summary {
	sum := Summary{Total: len(results)}
	for _, a := range results {
		if a == nil {
			continue
		}
		if a.IsSafe {
			sum.Safe++
		} else {
			sum.Threats++
		}
		if a.RiskLevel == LevelCritical {
			sum.Critical++
		}
	}
	return sum
}
