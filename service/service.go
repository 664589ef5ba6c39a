package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flux_backend/core"
	"flux_backend/dispatch"
	"flux_backend/fluxruntime"
	"flux_backend/history"
	"flux_backend/imaging"
	"flux_backend/logging"
	"flux_backend/metrics"
)

// ImageService orchestrates the three operations end to end. It owns no
// concurrency of its own: fan-out bounds live in the Dispatcher and the
// single-load guarantee lives in the Runtime.
type ImageService struct {
	cfg        *core.Config
	runtime    *fluxruntime.Runtime
	dispatcher *dispatch.Dispatcher
	assembler  *Assembler
	records    *history.Repository
	stats      *metrics.Store
	limits     fluxruntime.Limits
	log        *logging.Logger
}

// New wires an ImageService. records and stats may be nil to disable
// history persistence and in-memory statistics (useful in tests).
func New(cfg *core.Config, runtime *fluxruntime.Runtime, dispatcher *dispatch.Dispatcher,
	assembler *Assembler, records *history.Repository, stats *metrics.Store,
	log *logging.Logger) *ImageService {
	if log == nil {
		log = logging.NewNop()
	}
	return &ImageService{
		cfg:        cfg,
		runtime:    runtime,
		dispatcher: dispatcher,
		assembler:  assembler,
		records:    records,
		stats:      stats,
		limits: fluxruntime.Limits{
			MaxSteps: cfg.MaxInferenceSteps,
			MaxBatch: cfg.MaxBatchSize,
		},
		log: log.Named("service"),
	}
}

// Generate produces req.N images from a single prompt.
func (s *ImageService) Generate(ctx context.Context, req CreateRequest) (*Response, error) {
	start := time.Now()
	requestID := uuid.New().String()
	req.applyDefaults(s.cfg)

	s.log.Info("Generation request",
		zap.String("request_id", requestID),
		zap.Int("n", req.N),
		zap.String("size", req.Size),
		zap.String("user", req.User))

	rec := history.GenerationRecord{
		RequestID:      requestID,
		Operation:      history.OpGeneration,
		Prompt:         req.Prompt,
		ModelName:      s.runtime.ModelName(),
		BatchSize:      req.N,
		Seed:           nullableSeed(req.Seed),
		Steps:          req.Steps,
		Guidance:       req.Guidance,
		ResponseFormat: string(req.ResponseFormat),
		Username:       req.User,
	}

	resp, err := s.generate(ctx, req, &rec)
	s.record(rec, start, err)
	return resp, err
}

func (s *ImageService) generate(ctx context.Context, req CreateRequest, rec *history.GenerationRecord) (*Response, error) {
	if err := validateFormat(req.ResponseFormat); err != nil {
		return nil, err
	}
	if err := fluxruntime.ValidateBatchSize(req.N, s.limits); err != nil {
		return nil, mapRuntimeError(err)
	}

	width, height, err := imaging.ParseSize(req.Size, s.cfg.MinImageSize, s.cfg.MaxImageSize)
	if err != nil {
		return nil, err
	}
	rec.Width, rec.Height = width, height

	base := fluxruntime.Params{
		Prompt:   req.Prompt,
		Width:    width,
		Height:   height,
		Steps:    req.Steps,
		Guidance: req.Guidance,
	}
	if err := fluxruntime.ValidateParams(base, s.limits); err != nil {
		return nil, mapRuntimeError(err)
	}

	if err := s.runtime.EnsureReady(ctx); err != nil {
		return nil, mapRuntimeError(err)
	}

	invocations := make([]dispatch.Invocation, req.N)
	for i := 0; i < req.N; i++ {
		p := base
		p.Seed = fluxruntime.DeriveSeed(req.Seed, i)
		invocations[i] = dispatch.Invocation{
			Ordinal: i,
			Run: func(ctx context.Context) (image.Image, error) {
				return s.runtime.Generate(ctx, p)
			},
		}
	}

	images, err := s.dispatcher.Run(ctx, invocations)
	if err != nil {
		return nil, mapRuntimeError(err)
	}
	return s.assembler.Assemble(images, req.ResponseFormat, nil)
}

// Edit produces req.N edits of the input image under a single prompt.
func (s *ImageService) Edit(ctx context.Context, req EditRequest) (*Response, error) {
	start := time.Now()
	requestID := uuid.New().String()
	req.applyDefaults(s.cfg)

	s.log.Info("Edit request",
		zap.String("request_id", requestID),
		zap.Int("n", req.N),
		zap.String("size", req.Size),
		zap.String("user", req.User))

	rec := history.GenerationRecord{
		RequestID:      requestID,
		Operation:      history.OpEdit,
		Prompt:         req.Prompt,
		ModelName:      s.runtime.ModelName(),
		BatchSize:      req.N,
		Seed:           nullableSeed(req.Seed),
		Steps:          req.Steps,
		Guidance:       req.Guidance,
		ResponseFormat: string(req.ResponseFormat),
		Username:       req.User,
	}

	resp, err := s.edit(ctx, req, &rec)
	s.record(rec, start, err)
	return resp, err
}

func (s *ImageService) edit(ctx context.Context, req EditRequest, rec *history.GenerationRecord) (*Response, error) {
	if err := validateFormat(req.ResponseFormat); err != nil {
		return nil, err
	}
	if err := fluxruntime.ValidateBatchSize(req.N, s.limits); err != nil {
		return nil, mapRuntimeError(err)
	}

	decoded, err := imaging.Decode(req.Image, s.cfg.MaxImageBytes)
	if err != nil {
		return nil, err
	}
	if err := imaging.ValidateDimensions(decoded, s.cfg.MinImageSize, s.cfg.MaxImageSize); err != nil {
		return nil, err
	}

	input := decoded.Image
	// A requested size reshapes the input before editing; otherwise the
	// edit works at the input's native dimensions.
	if req.Size != "" {
		width, height, err := imaging.ParseSize(req.Size, s.cfg.MinImageSize, s.cfg.MaxImageSize)
		if err != nil {
			return nil, err
		}
		if decoded.Width != width || decoded.Height != height {
			input = imaging.Resize(input, width, height, true)
		}
	}
	canonical := imaging.ToRGBA(input)
	bounds := canonical.Bounds()
	rec.Width, rec.Height = bounds.Dx(), bounds.Dy()

	base := fluxruntime.Params{
		Prompt:   req.Prompt,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Steps:    req.Steps,
		Guidance: req.Guidance,
		Input:    canonical,
	}
	if err := fluxruntime.ValidateParams(base, s.limits); err != nil {
		return nil, mapRuntimeError(err)
	}

	if err := s.runtime.EnsureReady(ctx); err != nil {
		return nil, mapRuntimeError(err)
	}

	invocations := make([]dispatch.Invocation, req.N)
	for i := 0; i < req.N; i++ {
		p := base
		p.Seed = fluxruntime.DeriveSeed(req.Seed, i)
		invocations[i] = dispatch.Invocation{
			Ordinal: i,
			Run: func(ctx context.Context) (image.Image, error) {
				return s.runtime.Edit(ctx, p)
			},
		}
	}

	images, err := s.dispatcher.Run(ctx, invocations)
	if err != nil {
		return nil, mapRuntimeError(err)
	}
	return s.assembler.Assemble(images, req.ResponseFormat, nil)
}

// Vary produces one variation of the input image per prompt. Each prompt
// is wrapped with the variation framing before submission, and the wrapped
// form is echoed back as the revised prompt.
func (s *ImageService) Vary(ctx context.Context, req VaryRequest) (*Response, error) {
	start := time.Now()
	requestID := uuid.New().String()
	req.applyDefaults(s.cfg)

	s.log.Info("Variation request",
		zap.String("request_id", requestID),
		zap.Int("prompts", len(req.Prompts)),
		zap.String("user", req.User))

	rec := history.GenerationRecord{
		RequestID:      requestID,
		Operation:      history.OpVariation,
		Prompt:         strings.Join(req.Prompts, "; "),
		ModelName:      s.runtime.ModelName(),
		BatchSize:      len(req.Prompts),
		Seed:           nullableSeed(req.Seed),
		Steps:          req.Steps,
		Guidance:       req.Guidance,
		ResponseFormat: string(req.ResponseFormat),
		Username:       req.User,
	}

	resp, err := s.vary(ctx, req, &rec)
	s.record(rec, start, err)
	return resp, err
}

func (s *ImageService) vary(ctx context.Context, req VaryRequest, rec *history.GenerationRecord) (*Response, error) {
	if err := validateFormat(req.ResponseFormat); err != nil {
		return nil, err
	}
	if len(req.Prompts) == 0 {
		return nil, core.ErrInvalidParameters("prompts list cannot be empty")
	}
	if len(req.Prompts) > MaxVaryPrompts {
		return nil, core.ErrInvalidParameters("prompt count %d exceeds maximum %d", len(req.Prompts), MaxVaryPrompts)
	}
	for i, prompt := range req.Prompts {
		if strings.TrimSpace(prompt) == "" {
			return nil, core.ErrInvalidParameters("prompt %d is empty", i)
		}
	}

	decoded, err := imaging.Decode(req.Image, s.cfg.MaxImageBytes)
	if err != nil {
		return nil, err
	}
	if err := imaging.ValidateDimensions(decoded, s.cfg.MinImageSize, s.cfg.MaxImageSize); err != nil {
		return nil, err
	}
	canonical := imaging.ToRGBA(decoded.Image)
	rec.Width, rec.Height = decoded.Width, decoded.Height

	base := fluxruntime.Params{
		Width:    decoded.Width,
		Height:   decoded.Height,
		Steps:    req.Steps,
		Guidance: req.Guidance,
		Strength: req.Strength,
		Input:    canonical,
	}
	for _, prompt := range req.Prompts {
		p := base
		p.Prompt = prompt
		if err := fluxruntime.ValidateParams(p, s.limits); err != nil {
			return nil, mapRuntimeError(err)
		}
	}

	if err := s.runtime.EnsureReady(ctx); err != nil {
		return nil, mapRuntimeError(err)
	}

	invocations := make([]dispatch.Invocation, len(req.Prompts))
	revised := make([]string, len(req.Prompts))
	for i, prompt := range req.Prompts {
		p := base
		p.Prompt = prompt
		p.Seed = fluxruntime.DeriveSeed(req.Seed, i)
		revised[i] = fluxruntime.WrapVariationPrompt(prompt)
		invocations[i] = dispatch.Invocation{
			Ordinal: i,
			Run: func(ctx context.Context) (image.Image, error) {
				return s.runtime.Vary(ctx, p)
			},
		}
	}

	images, err := s.dispatcher.Run(ctx, invocations)
	if err != nil {
		return nil, mapRuntimeError(err)
	}
	return s.assembler.Assemble(images, req.ResponseFormat, revised)
}

// record persists the request outcome. History failures are logged and
// swallowed; they never fail a request that produced images.
func (s *ImageService) record(rec history.GenerationRecord, start time.Time, opErr error) {
	rec.DurationMS = int(time.Since(start).Milliseconds())
	if opErr != nil {
		rec.Status = history.StatusError
		rec.ErrorMessage = core.AsAPIError(opErr).Message
	} else {
		rec.Status = history.StatusSuccess
	}

	if s.stats != nil {
		sample := metrics.Sample{
			RequestID: rec.RequestID,
			Operation: rec.Operation,
			Status:    metrics.StatusSuccess,
			BatchSize: rec.BatchSize,
			Duration:  time.Since(start),
		}
		if opErr != nil {
			sample.Status = metrics.StatusError
			sample.ErrorType = core.AsAPIError(opErr).Type
			sample.BatchSize = 0
		}
		s.stats.Record(sample)
	}

	if s.records == nil {
		return
	}

	// Use a fresh context so a cancelled request still gets recorded.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.records.Insert(ctx, rec); err != nil {
		s.log.Warn("Failed to record request history",
			zap.String("request_id", rec.RequestID),
			zap.Error(err))
	}
}

// mapRuntimeError translates runtime and dispatch sentinels into the
// client-visible taxonomy. APIError values pass through unchanged.
func mapRuntimeError(err error) *core.APIError {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	switch {
	case errors.Is(err, fluxruntime.ErrInvalidPrompt), errors.Is(err, fluxruntime.ErrInvalidParams):
		return core.ErrInvalidParameters("%s", err.Error())
	case errors.Is(err, fluxruntime.ErrModelLoadFailed),
		errors.Is(err, fluxruntime.ErrModelNotLoaded),
		errors.Is(err, fluxruntime.ErrRuntimeClosed):
		return core.ErrModelUnavailable(err)
	case errors.Is(err, fluxruntime.ErrGenerationFailed):
		return core.ErrGenerationFailed(err)
	default:
		return core.ErrInternal(err)
	}
}

func nullableSeed(seed *int64) sql.NullInt64 {
	if seed == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *seed, Valid: true}
}

func formatSize(w, h int) string {
	return fmt.Sprintf("%dx%d", w, h)
}
