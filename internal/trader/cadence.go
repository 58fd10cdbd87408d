package trader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-autotrade/internal/advisory"
	"github.com/rxtech-lab/argo-autotrade/internal/types"
	"github.com/rxtech-lab/argo-autotrade/pkg/errors"
	"go.uber.org/zap"
)

// PromptSource supplies the prompts for one advisory request.
type PromptSource interface {
	Prompts(ctx context.Context) (systemPrompt, userPrompt string, err error)
}

const (
	systemPromptFile = "system.txt"
	userPromptFile   = "user.txt"
)

// FilePromptSource reads system.txt and user.txt from Dir on every call so the
// prompts can be edited while the loop is running.
type FilePromptSource struct {
	Dir string
	// IncludeSchema appends the response JSON schema to the system prompt.
	IncludeSchema bool
}

// Prompts returns the trimmed system and user prompts. The response schema is appended to the system prompt when IncludeSchema is set.
func (f FilePromptSource) Prompts(_ context.Context) (string, string, error) {
	system, err := readPrompt(filepath.Join(f.Dir, systemPromptFile))
	if err != nil {
		return "", "", err
	}

	user, err := readPrompt(filepath.Join(f.Dir, userPromptFile))
	if err != nil {
		return "", "", err
	}

	if f.IncludeSchema {
		schema, err := advisory.ResponseSchema()
		if err != nil {
			return "", "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to build response schema", err)
		}

		system = system + "\n\nRespond with a single JSON object matching this schema:\n" + schema
	}

	return system, user, nil
}

func readPrompt(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read prompt %s", path)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.Newf(errors.ErrCodeInvalidConfiguration, "prompt %s is empty", path)
	}

	return text, nil
}

// RunOnce requests one plan and executes it. The request is attempted up to
// MaxRetries times with a linearly growing delay.
func (t *Trader) RunOnce(ctx context.Context, prompts PromptSource) (types.PlanReport, error) {
	if t.advisor == nil {
		return types.PlanReport{}, errors.New(errors.ErrCodeInvalidConfiguration, "no advisory model configured")
	}

	system, user, err := prompts.Prompts(ctx)
	if err != nil {
		return types.PlanReport{}, err
	}

	resp, err := t.analyze(ctx, system, user)
	if err != nil {
		return types.PlanReport{}, err
	}

	return t.ExecutePlan(ctx, resp)
}

func (t *Trader) analyze(ctx context.Context, system, user string) (advisory.Response, error) {
	attempts := t.config.Advisory.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := t.advisor.Analyze(ctx, system, user)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		t.logger.Warn("Advisory request failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if attempt == attempts {
			break
		}

		if err := t.sleep(ctx, time.Duration(attempt)*t.retryDelay); err != nil {
			return advisory.Response{}, err
		}
	}

	return advisory.Response{}, lastErr
}

// RunCadence repeats RunOnce until ctx is cancelled, waiting the interval the
// advisor suggested (clamped) between rounds. A failed round waits the default
// interval.
func (t *Trader) RunCadence(ctx context.Context, prompts PromptSource) error {
	for {
		wait := t.config.Advisory.DefaultInterval

		report, err := t.RunOnce(ctx, prompts)
		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil && errors.HasCode(err, errors.ErrCodeInvalidConfiguration):
			return err
		case err != nil:
			t.logger.Error("Decision round failed", zap.Error(err))
		default:
			wait = report.NextCallInterval
		}

		t.logger.Info("Next decision round scheduled", zap.Duration("in", wait))

		if err := t.sleep(ctx, wait); err != nil {
			return nil
		}
	}
}

func (t *Trader) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
