// Package pipeline orchestrates one ask request end to end: acquire documents,
// extract and chunk text, embed, index, retrieve, and synthesize answers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/fetch"
	"github.com/hyperjump/kotae/internal/fingerprint"
	"github.com/hyperjump/kotae/internal/keyword"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/query"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/synth"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// Pipeline stages, logged as the request advances.
const (
	StageReceived     = "received"
	StageFetching     = "fetching"
	StageExtracting   = "extracting"
	StageChunking     = "chunking"
	StageEmbedding    = "embedding"
	StageIndexing     = "indexing"
	StageRetrieving   = "retrieving"
	StageSynthesizing = "synthesizing"
	StageCompleted    = "completed"
	StageFailed       = "failed"
)

// TimeoutError reports the stage a request was in when its deadline expired.
type TimeoutError struct {
	Stage string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out during %s", e.Stage)
}

// Orchestrator runs ask requests. It is safe for concurrent use; all
// per-request state (indexes, retrievers) is created and torn down inside Run.
type Orchestrator struct {
	cfg       *config.Config
	fetcher   *fetch.Fetcher
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	embedder  embedding.Embedder
	llm       synth.LLMClient
	analyzer  *query.Analyzer
	cache     storage.EntryCache // nil disables corpus caching
	logger    *zap.Logger
}

// New creates an orchestrator. cache may be nil.
func New(cfg *config.Config, embedder embedding.Embedder, llm synth.LLMClient, cache storage.EntryCache, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		fetcher:   fetch.NewFetcher(cfg.Pipeline.MaxDocumentSizeBytes(), logger),
		extractor: extract.NewExtractor(),
		chunker:   chunker.NewChunker(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap),
		embedder:  embedder,
		llm:       llm,
		analyzer:  query.NewAnalyzer(),
		cache:     cache,
		logger:    logger,
	}
}

// docResult carries one document through the per-document stages, joined by
// position so output order never depends on completion order.
type docResult struct {
	doc     *models.Document
	chunks  []*models.DocumentChunk
	vectors [][]float32
	err     error
}

// Run executes one request. It returns an error only for request-level
// failures: no questions, no document acquired, or the index unusable.
// Individual document failures become warnings; individual question failures
// become error-text answers. The response always has exactly one answer per
// question, in question order.
func (o *Orchestrator) Run(ctx context.Context, req *models.AskRequest) (*models.AskResponse, error) {
	started := time.Now()
	logger := o.logger.With(zap.String("request_id", uuid.New().String()))
	stage := StageReceived

	if len(req.Questions) == 0 {
		return nil, errors.New("no questions given")
	}
	if len(req.Documents)+len(req.Uploads) == 0 {
		return nil, errors.New("no documents given")
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Pipeline.RequestTimeout())
	defer cancel()

	fail := func(err error) (*models.AskResponse, error) {
		logger.Error("request failed", zap.String("stage", stage), zap.Error(err))
		if ctx.Err() != nil {
			return nil, &TimeoutError{Stage: stage}
		}
		return nil, err
	}
	advance := func(next string) {
		stage = next
		logger.Debug("stage", zap.String("stage", stage))
	}

	// Acquisition runs concurrently, one slot per document, joined by position.
	advance(StageFetching)
	docs := make([]*models.Document, len(req.Documents)+len(req.Uploads))
	fetchErrs := make([]error, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Pipeline.MaxConcurrentDocuments)
	for i, source := range req.Documents {
		i, source := i, source
		g.Go(func() error {
			docs[i], fetchErrs[i] = o.fetcher.Fetch(gctx, source)
			return nil
		})
	}
	for j, upload := range req.Uploads {
		i := len(req.Documents) + j
		upload := upload
		g.Go(func() error {
			docs[i], fetchErrs[i] = o.fetcher.FromUpload(upload)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return fail(ctx.Err())
	}

	var warnings []string
	var acquired []*models.Document
	for i, doc := range docs {
		if fetchErrs[i] != nil {
			warnings = append(warnings, fetchErrs[i].Error())
			continue
		}
		acquired = append(acquired, doc)
	}
	if len(acquired) == 0 {
		advance(StageFailed)
		err := errors.New("no document could be acquired")
		if len(warnings) > 0 {
			err = fmt.Errorf("no document could be acquired: %s", warnings[0])
		}
		return fail(err)
	}

	// An unchanged corpus embedded by the same provider is served from the
	// cache, skipping extraction and embedding entirely.
	fp := fingerprint.Corpus(acquired)
	allEntries, cacheHit := o.loadCachedEntries(ctx, logger, fp)

	docCount := len(acquired)
	if !cacheHit {
		advance(StageExtracting)
		results := make([]docResult, len(acquired))
		eg, ectx := errgroup.WithContext(ctx)
		eg.SetLimit(o.cfg.Pipeline.MaxConcurrentDocuments)
		for i, doc := range acquired {
			i, doc := i, doc
			eg.Go(func() error {
				results[i] = o.processDocument(ectx, logger, doc)
				return nil
			})
		}
		_ = eg.Wait()
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}

		var succeeded []docResult
		for _, r := range results {
			if r.err != nil {
				warnings = append(warnings, r.err.Error())
				continue
			}
			succeeded = append(succeeded, r)
		}
		if len(succeeded) == 0 {
			advance(StageFailed)
			return fail(errors.New("no document could be processed"))
		}

		// Embedding dimension must be uniform across the index. When the
		// provider fell back mid-request, documents embedded before the
		// switch are re-embedded with the active provider.
		advance(StageEmbedding)
		dims := o.embedder.Dimensions()
		consistent := succeeded[:0]
		for _, r := range succeeded {
			if len(r.vectors) > 0 && len(r.vectors[0]) != dims {
				logger.Info("re-embedding document after provider change",
					zap.String("document", r.doc.ID))
				vecs, err := o.embedChunks(ctx, r.chunks)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("document %s: re-embedding failed: %v", r.doc.Source, err))
					continue
				}
				r.vectors = vecs
			}
			consistent = append(consistent, r)
		}
		succeeded = consistent
		if len(succeeded) == 0 {
			advance(StageFailed)
			return fail(errors.New("no document could be embedded"))
		}

		docCount = len(succeeded)
		for _, r := range succeeded {
			for i, chunk := range r.chunks {
				allEntries = append(allEntries, vector.Entry{Chunk: *chunk, Vector: r.vectors[i]})
			}
		}
		if o.cache != nil && docCount == len(acquired) {
			// Only complete corpora are cached; a partial one would mask
			// failed documents on the next request.
			if err := o.cache.SaveEntries(ctx, fp, o.embedder.Name(), allEntries); err != nil {
				logger.Warn("corpus cache save failed", zap.Error(err))
			}
		}
	}

	advance(StageIndexing)
	// The index is request-scoped; persistence happens through the entry
	// cache, never by sharing an index file between requests.
	dims := len(allEntries[0].Vector)
	index, err := vector.New(o.cfg.Index.Backend, dims, "", logger)
	if err != nil {
		return fail(fmt.Errorf("create vector index: %w", err))
	}
	defer index.Close()
	if err := index.Reset(ctx); err != nil {
		return fail(fmt.Errorf("reset vector index: %w", err))
	}
	lexical, err := keyword.NewChunkIndex()
	if err != nil {
		return fail(fmt.Errorf("create lexical index: %w", err))
	}
	defer lexical.Close()

	if err := index.Add(ctx, allEntries); err != nil {
		return fail(fmt.Errorf("populate vector index: %w", err))
	}
	chunks := make([]models.DocumentChunk, len(allEntries))
	for i, e := range allEntries {
		chunks[i] = e.Chunk
	}
	if err := lexical.Add(ctx, chunks); err != nil {
		return fail(fmt.Errorf("populate lexical index: %w", err))
	}
	chunkCount := len(allEntries)

	degraded := false
	if f, ok := o.embedder.(interface{ FallbackTriggered() bool }); ok && f.FallbackTriggered() {
		degraded = true
		warnings = append(warnings, "embedding provider fell back to local embeddings; confidence reduced")
	}

	// Questions run concurrently, answers slotted by question index. A failed
	// question degrades to an error answer and never aborts the batch.
	advance(StageRetrieving)
	ret := retriever.New(index, lexical, o.embedder,
		o.cfg.Pipeline.TopK, o.cfg.Pipeline.MinScore, logger)
	synthesizer := synth.NewSynthesizer(o.llm, nil, o.cfg.Pipeline.ContextBudgetChars, logger)

	advance(StageSynthesizing)
	answers := make([]*models.Answer, len(req.Questions))
	qg, qctx := errgroup.WithContext(ctx)
	qg.SetLimit(o.cfg.Pipeline.MaxConcurrentQuestions)
	for i, question := range req.Questions {
		i, question := i, question
		qg.Go(func() error {
			answers[i] = o.answer(qctx, ret, synthesizer, question, degraded)
			return nil
		})
	}
	_ = qg.Wait()
	if ctx.Err() != nil {
		return fail(ctx.Err())
	}

	advance(StageCompleted)
	elapsed := time.Since(started)
	logger.Info("request completed",
		zap.Int("documents", docCount),
		zap.Int("chunks", chunkCount),
		zap.Int("questions", len(req.Questions)),
		zap.Int("warnings", len(warnings)),
		zap.Bool("cache_hit", cacheHit),
		zap.Duration("elapsed", elapsed),
	)
	return &models.AskResponse{
		Answers:        answers,
		ProcessingMS:   elapsed.Milliseconds(),
		DocumentCount:  docCount,
		ChunkCount:     chunkCount,
		Warnings:       warnings,
		EmbeddingModel: o.embedder.Name(),
	}, nil
}

// loadCachedEntries returns the cached corpus when present and embedded by the
// currently active provider; any cache trouble degrades to a miss.
func (o *Orchestrator) loadCachedEntries(ctx context.Context, logger *zap.Logger, fp string) ([]vector.Entry, bool) {
	if o.cache == nil {
		return nil, false
	}
	provider, entries, ok, err := o.cache.LoadEntries(ctx, fp)
	if err != nil {
		logger.Warn("corpus cache load failed", zap.Error(err))
		return nil, false
	}
	if !ok || len(entries) == 0 {
		return nil, false
	}
	if provider != o.embedder.Name() {
		logger.Debug("corpus cache entry from different provider ignored",
			zap.String("cached", provider), zap.String("active", o.embedder.Name()))
		return nil, false
	}
	logger.Info("corpus served from cache",
		zap.String("fingerprint", fp), zap.Int("entries", len(entries)))
	return entries, true
}

// processDocument runs extract, chunk, and embed for one acquired document.
func (o *Orchestrator) processDocument(ctx context.Context, logger *zap.Logger, doc *models.Document) docResult {
	text, err := o.extractor.Extract(doc.Raw, doc.Format)
	if err != nil {
		return docResult{doc: doc, err: fmt.Errorf("document %s: %w", doc.Source, err)}
	}
	doc.Text = text
	doc.Raw = nil // extracted, raw bytes no longer needed

	chunks := o.chunker.Chunk(doc.ID, text)
	if len(chunks) == 0 {
		return docResult{doc: doc, err: fmt.Errorf("document %s: no chunks produced", doc.Source)}
	}

	vectors, err := o.embedChunks(ctx, chunks)
	if err != nil {
		return docResult{doc: doc, err: fmt.Errorf("document %s: embedding failed: %w", doc.Source, err)}
	}
	logger.Debug("document processed",
		zap.String("document", doc.ID),
		zap.String("format", doc.Format),
		zap.Int("chunks", len(chunks)),
	)
	return docResult{doc: doc, chunks: chunks, vectors: vectors}
}

func (o *Orchestrator) embedChunks(ctx context.Context, chunks []*models.DocumentChunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	return o.embedder.EmbedBatch(ctx, texts)
}

// answer resolves one question, degrading to an error answer on failure.
func (o *Orchestrator) answer(ctx context.Context, ret *retriever.Retriever, synthesizer *synth.Synthesizer, question string, degraded bool) *models.Answer {
	started := time.Now()
	hints := o.analyzer.Analyze(question)

	retrieval, err := ret.Retrieve(ctx, question)
	if err == nil {
		var ans *models.Answer
		ans, err = synthesizer.Synthesize(ctx, question, hints, retrieval, degraded || retrieval.Lexical)
		if err == nil {
			return ans
		}
	}

	o.logger.Warn("question failed", zap.String("question", utils.Truncate(question, 200)), zap.Error(err))
	elapsed := time.Since(started)
	return &models.Answer{
		Question:  question,
		Text:      "This question could not be answered due to an internal error.",
		Err:       err.Error(),
		Elapsed:   elapsed,
		ElapsedMS: elapsed.Milliseconds(),
	}
}
