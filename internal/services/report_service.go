package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/yoockh/legalease/internal/cache"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/utils"
)

// TextGenerator answers a single prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type ReportService interface {
	Summary(ctx context.Context, text string, lang models.Language) (*models.Report, error)
	ClauseAnalysis(ctx context.Context, text string, lang models.Language) (*models.Report, error)
	Comparison(ctx context.Context, textA, textB string, lang models.Language) (*models.Report, error)
}

type reportService struct {
	gen    TextGenerator
	cache  cache.Cache
	ttl    time.Duration
	logger *logrus.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewReportService builds a ReportService. cache may be nil; ttl <= 0 keeps
// reports until evicted externally.
func NewReportService(gen TextGenerator, c cache.Cache, ttl time.Duration, logger *logrus.Logger) ReportService {
	if logger == nil {
		logger = logrus.New()
	}
	return &reportService{
		gen:    gen,
		cache:  c,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *reportService) Summary(ctx context.Context, text string, lang models.Language) (*models.Report, error) {
	const op = "ReportService.Summary"
	if isBlank(text) {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "document has no text to summarize", utils.ErrEmptyDocument)
	}
	return s.generate(ctx, op, models.ReportSummary, lang, SummaryPrompt(text, lang), text)
}

func (s *reportService) ClauseAnalysis(ctx context.Context, text string, lang models.Language) (*models.Report, error) {
	const op = "ReportService.ClauseAnalysis"
	if isBlank(text) {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "document has no text to analyze", utils.ErrEmptyDocument)
	}
	return s.generate(ctx, op, models.ReportClauseAnalysis, lang, ClauseAnalysisPrompt(text, lang), text)
}

func (s *reportService) Comparison(ctx context.Context, textA, textB string, lang models.Language) (*models.Report, error) {
	const op = "ReportService.Comparison"
	if isBlank(textA) {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "first document has no text", utils.ErrEmptyDocument)
	}
	if isBlank(textB) {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "second document has no text", utils.ErrEmptyDocument)
	}
	return s.generate(ctx, op, models.ReportComparison, lang, ComparisonPrompt(textA, textB, lang), textA, textB)
}

func (s *reportService) generate(ctx context.Context, op string, kind models.ReportKind, lang models.Language, prompt string, inputs ...string) (*models.Report, error) {
	key := ReportCacheKey(kind, lang, inputs...)
	log := s.logger.WithFields(logrus.Fields{"kind": kind, "language": lang, "cache_key": key})

	if r, ok := s.lookup(ctx, log, key); ok {
		return r, nil
	}

	// The flight outlives any single caller; each caller only stops waiting.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		if r, ok := s.lookup(flightCtx, log, key); ok {
			return r, nil
		}

		start := time.Now()
		content, err := s.gen.Generate(flightCtx, prompt)
		if err == nil && isBlank(content) {
			err = errors.New("empty response")
		}
		if err != nil {
			log.WithError(err).Warn("report generation failed")
			code := utils.CodeUnavailable
			if errors.Is(err, context.DeadlineExceeded) {
				code = utils.CodeTimeout
			}
			return nil, utils.E(code, op, "failed to generate report", fmt.Errorf("%w: %w", utils.ErrGeneration, err))
		}
		log.WithField("latency_ms", time.Since(start).Milliseconds()).Info("report generated")

		r := &models.Report{Kind: kind, Language: lang, Content: content, GeneratedAt: s.now()}
		if s.cache != nil {
			if err := s.cache.SetJSON(flightCtx, key, r, s.ttl); err != nil {
				log.WithError(err).Warn("failed to cache report")
			}
		}
		return r, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, utils.E(utils.CodeTimeout, op, "report request abandoned", ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}

	out := *res.Val.(*models.Report)
	if res.Shared {
		log.Debug("report request collapsed")
	}
	return &out, nil
}

func (s *reportService) lookup(ctx context.Context, log *logrus.Entry, key string) (*models.Report, bool) {
	if s.cache == nil {
		return nil, false
	}
	var r models.Report
	hit, err := s.cache.GetJSON(ctx, key, &r)
	if err != nil {
		log.WithError(err).Warn("report cache read failed")
		return nil, false
	}
	if !hit {
		return nil, false
	}
	r.Cached = true
	return &r, true
}

// ReportCacheKey identifies a report by kind, language and exact input text.
func ReportCacheKey(kind models.ReportKind, lang models.Language, inputs ...string) string {
	h := sha256.New()
	for _, in := range inputs {
		fmt.Fprintf(h, "%d:", len(in))
		h.Write([]byte(in))
	}
	return fmt.Sprintf("report:%s:%s:%s", kind, strings.ToLower(string(lang)), hex.EncodeToString(h.Sum(nil)))
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
