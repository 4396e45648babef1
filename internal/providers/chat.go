package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/PadsterH2012/extractor/internal/types"
)

// backend is one chat transport. It turns a system+user prompt pair into raw
// model output; everything above it (retry, gating, caching, schema
// validation) is shared by LLM.
type backend interface {
	name() string
	complete(ctx context.Context, system, user string, opts Options) (string, error)
	healthy(ctx context.Context) error
}

// LLM adapts a chat backend to the Provider interface. All three operations
// flow through the same call path and differ only in prompt and schema.
type LLM struct {
	b      backend
	gate   *Gate
	cache  *Cache
	logger *slog.Logger
}

func newLLM(b backend, maxConcurrent int, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{
		b:      b,
		gate:   NewGate(maxConcurrent),
		cache:  NewCache(0),
		logger: logger.With("provider", b.name()),
	}
}

func (l *LLM) Name() string { return l.b.name() }

func (l *LLM) Healthy(ctx context.Context) error { return l.b.healthy(ctx) }

// GateStatus exposes gate occupancy for the health surface.
func (l *LLM) GateStatus() GateStatus { return l.gate.Status() }

func (l *LLM) Identify(ctx context.Context, req IdentifyRequest) (*Identification, error) {
	out := &Identification{}
	err := l.call(ctx, "identify", identifySystemPrompt, identifyUserPrompt(req), identifySchema, req.Opts, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *LLM) Categorize(ctx context.Context, req CategorizeRequest) (*Categorization, error) {
	out := &Categorization{}
	err := l.call(ctx, "categorize", categorizeSystemPrompt, categorizeUserPrompt(req), categorizeSchema, req.Opts, out)
	if err != nil {
		return nil, err
	}
	for _, c := range req.Categories {
		if c == out.Category {
			return out, nil
		}
	}
	return nil, types.Errorf(types.KindAIMalformed, "categorize",
		"category %q not in allowed taxonomy", out.Category)
}

func (l *LLM) ExtractCharacters(ctx context.Context, req CharacterRequest) (*CharacterExtraction, error) {
	out := &CharacterExtraction{}
	err := l.call(ctx, "characters", charactersSystemPrompt, charactersUserPrompt(req), charactersSchema, req.Opts, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// call runs one operation end to end: cache lookup, concurrency gate, retry
// loop around the backend, JSON extraction, schema validation.
func (l *LLM) call(ctx context.Context, op, system, user string, schema *jsonschema.Schema, opts Options, out any) error {
	key := Key(op, system+"\x00"+user, opts)
	if opts.Cache {
		if raw, ok := l.cache.Get(key); ok {
			l.logger.Debug("cache hit", "op", op)
			return json.Unmarshal(raw, out)
		}
	}

	if err := l.gate.Acquire(ctx); err != nil {
		return classifyCtx(err)
	}
	defer l.gate.Release()

	start := time.Now()
	var content string
	err := retry.Do(
		func() error {
			cctx, cancel := context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
			c, err := l.b.complete(cctx, system, user, opts)
			if err != nil {
				return classifyTransport(err)
			}
			content = c
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(opts.Retries)+1),
		retry.Delay(opts.RetryBase),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.MaxJitter(opts.RetryBase/5),
		retry.RetryIf(isRetryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			l.logger.Warn("retrying provider call", "op", op, "attempt", attempt+1, "error", err)
		}),
	)
	if err != nil {
		return err
	}

	if err := decodeValidated(content, schema, out); err != nil {
		return err
	}
	l.logger.Debug("provider call complete", "op", op, "elapsed", time.Since(start))

	if opts.Cache {
		if raw, merr := json.Marshal(out); merr == nil {
			l.cache.Put(key, raw)
		}
	}
	return nil
}

// statusError is a non-2xx HTTP response from a backend.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.code, e.body)
}

// classifyTransport maps a backend error to the failure taxonomy.
func classifyTransport(err error) error {
	if err == nil {
		return nil
	}
	var pe *types.PipelineError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.KindAITimeout, "", err)
	}
	if errors.Is(err, context.Canceled) {
		return types.NewError(types.KindCancelled, "", err)
	}
	var se *statusError
	if errors.As(err, &se) {
		switch {
		case se.code == 401 || se.code == 403:
			return types.NewError(types.KindProviderUnauthorized, "", err).
				WithHint("check the provider API key")
		case se.code == 408 || se.code == 429 || se.code >= 500:
			return types.NewError(types.KindAIUnreachable, "", err)
		default:
			return types.NewError(types.KindAIMalformed, "", err)
		}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return types.NewError(types.KindAITimeout, "", err)
	}
	return types.NewError(types.KindAIUnreachable, "", err)
}

// classifyCtx maps a context error at a blocking point.
func classifyCtx(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewError(types.KindAITimeout, "", err)
	}
	return types.NewError(types.KindCancelled, "", err)
}

// isRetryable limits the retry loop to transient failures. Auth and
// malformed-output errors fail immediately.
func isRetryable(err error) bool {
	switch types.KindOf(err) {
	case types.KindAIUnreachable, types.KindAITimeout:
		return true
	default:
		return false
	}
}
