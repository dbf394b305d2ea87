// Package extract turns vendor bid documents into the raw plan records the
// comparison engine consumes, using Claude to read the document text.
package extract

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/bid-compare/internal/config"
	"github.com/sells-group/bid-compare/internal/fetcher"
	"github.com/sells-group/bid-compare/internal/model"
	"github.com/sells-group/bid-compare/pkg/anthropic"
)

const systemPrompt = `You are a construction bid data extractor. You read vendor bid documents and list every priced plan they contain.

Return ONLY a JSON array, no commentary:
[
  {
    "plan_id": "4101",
    "plan_name": "The Aspen",
    "price": 9425.00,
    "vendor": "Acme Mechanical",
    "system_type": "Gas",
    "tonnage": 3.5,
    "rough_po": 5655.00,
    "trim_po": 3770.00,
    "city": "Fort Worth",
    "state": "TX",
    "zip": "76118",
    "metro_area": "DFW"
  }
]

Rules:
1. Extract EVERY plan with a total price, even if there are 50 or more.
2. plan_id is the plan number or code exactly as printed, without the word "Plan".
3. price is the plan's total bid as a number, no currency symbol or thousands separators.
4. vendor is the bidding company's name if the document states it, otherwise null.
5. system_type, tonnage, rough_po and trim_po describe the plan's system and its phase prices when listed.
6. city, state and zip come from the job or plan address. If the city is Fort Worth, Irving, Dallas, Arlington, Plano, Frisco, Garland or Denton, set metro_area to "DFW"; otherwise null.
7. Use null for any field that is missing. Never guess a price.
8. If the text contains no priced plans, return [].`

const userPrompt = `Document: %s (part %d of %d)

%s`

// Options configures an Extractor.
type Options struct {
	Model             string
	MaxTokens         int64
	Concurrency       int
	RequestsPerSecond float64
	ChunkChars        int
	MaxAttempts       int
}

// OptionsFromConfig builds Options from the application config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Model:             cfg.Anthropic.Model,
		MaxTokens:         cfg.Anthropic.MaxTokens,
		Concurrency:       cfg.Extract.Concurrency,
		RequestsPerSecond: cfg.Extract.RequestsPerSecond,
		ChunkChars:        cfg.Extract.ChunkChars,
		MaxAttempts:       cfg.Extract.MaxAttempts,
	}
}

// Extractor reads bid documents and asks Claude for their plan prices.
type Extractor struct {
	client  anthropic.Client
	loader  *Loader
	opts    Options
	limiter *rate.Limiter
	backoff backoff
}

// New creates an Extractor.
func New(client anthropic.Client, loader *Loader, opts Options) *Extractor {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Extractor{
		client:  client,
		loader:  loader,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		backoff: defaultBackoff(opts.MaxAttempts),
	}
}

// Result is the outcome of extracting one document. FailedParts lists the
// 1-based chunks whose records are missing from Records.
type Result struct {
	Source      string
	Records     []model.RawRecord
	Chunks      int
	FailedParts []int
	Usage       anthropic.TokenUsage
	Err         error
}

// Summary tallies a directory extraction. Partial maps a document that
// succeeded only in part to its failed chunks.
type Summary struct {
	Documents int
	Succeeded int
	Failed    map[string]string
	Partial   map[string][]int
	Records   int
	Usage     anthropic.TokenUsage
}

// ExtractFile extracts the raw records of a single document. A chunk that
// fails is logged and skipped; the document fails only when every chunk does
// or ctx is done. Records with no source_file are attributed to the
// document's base name.
func (e *Extractor) ExtractFile(ctx context.Context, path string) Result {
	source := filepath.Base(path)
	res := Result{Source: source}

	text, err := e.loader.Load(ctx, path)
	if err != nil {
		res.Err = eris.Wrapf(err, "extract: load %s", source)
		return res
	}

	chunks := Chunk(text, e.opts.ChunkChars)
	res.Chunks = len(chunks)
	res.Records = []model.RawRecord{}

	var lastErr error
	for i, chunk := range chunks {
		recs, usage, err := e.extractChunk(ctx, source, i+1, len(chunks), chunk)
		res.Usage.Add(usage)
		if err != nil {
			lastErr = eris.Wrapf(err, "extract: %s part %d", source, i+1)
			if ctx.Err() != nil {
				res.Err = lastErr
				return res
			}
			zap.L().Warn("extract: chunk failed, keeping the rest of the document",
				zap.String("document", source),
				zap.Int("part", i+1),
				zap.Int("parts", len(chunks)),
				zap.Error(err),
			)
			res.FailedParts = append(res.FailedParts, i+1)
			continue
		}
		res.Records = append(res.Records, recs...)
	}
	if len(res.FailedParts) == len(chunks) {
		res.Err = lastErr
		return res
	}

	for i := range res.Records {
		if res.Records[i].SourceFile == nil {
			res.Records[i].SourceFile = source
		}
	}
	return res
}

func (e *Extractor) extractChunk(ctx context.Context, source string, part, total int, chunk string) ([]model.RawRecord, anthropic.TokenUsage, error) {
	var usage anthropic.TokenUsage

	resp, err := withRetry(ctx, e.backoff, source, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit wait")
		}
		return e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.opts.Model,
			MaxTokens: e.opts.MaxTokens,
			System:    anthropic.CachedSystem(systemPrompt),
			Messages: []anthropic.Message{
				{Role: "user", Content: fmt.Sprintf(userPrompt, source, part, total, chunk)},
			},
		})
	})
	if err != nil {
		return nil, usage, err
	}
	usage = resp.Usage

	if resp.Truncated() {
		zap.L().Warn("extract: reply hit max_tokens, records may be incomplete",
			zap.String("document", source),
			zap.Int("part", part),
		)
	}

	recs, err := parseRecords(resp.Text())
	if err != nil {
		return nil, usage, err
	}
	return recs, usage, nil
}

// ExtractAll extracts every document concurrently and returns the artifact
// of the documents that succeeded. A failed document is logged and recorded
// in the summary; only context cancellation aborts the run.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) (fetcher.Artifact, *Summary, error) {
	results := make([]Result, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, path := range paths {
		g.Go(func() error {
			res := e.ExtractFile(gCtx, path)
			results[i] = res
			if res.Err != nil {
				zap.L().Error("extract: document failed",
					zap.String("document", res.Source),
					zap.Error(res.Err),
				)
				return nil
			}
			zap.L().Info("extract: document done",
				zap.String("document", res.Source),
				zap.Int("chunks", res.Chunks),
				zap.Ints("failed_parts", res.FailedParts),
				zap.Int("records", len(res.Records)),
			)
			res.Usage.LogCost(e.opts.Model, res.Source)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "extract: cancelled")
	}

	art := fetcher.Artifact{}
	sum := &Summary{Documents: len(paths), Failed: map[string]string{}, Partial: map[string][]int{}}
	for _, res := range results {
		sum.Usage.Add(res.Usage)
		if res.Err != nil {
			sum.Failed[res.Source] = res.Err.Error()
			continue
		}
		sum.Succeeded++
		if len(res.FailedParts) > 0 {
			sum.Partial[res.Source] = res.FailedParts
		}
		sum.Records += len(res.Records)
		art[res.Source] = append(art[res.Source], res.Records...)
	}
	return art, sum, nil
}

// ExtractDir discovers the documents in dir and extracts them.
func (e *Extractor) ExtractDir(ctx context.Context, dir string, exts []string) (fetcher.Artifact, *Summary, error) {
	paths, err := Discover(dir, exts)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, eris.Errorf("extract: no bid documents in %s", dir)
	}
	zap.L().Info("extract: starting", zap.String("dir", dir), zap.Int("documents", len(paths)))
	return e.ExtractAll(ctx, paths)
}
