// Package engine is the facade the CLI and embedders use: pick a scheme,
// pick a backend, get a Result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yojana/internal/applicant"
	"yojana/internal/eval"
	"yojana/internal/reasoner"
	"yojana/internal/registry"
)

// ErrUnknownScheme is returned when the requested code is not in the catalog.
var ErrUnknownScheme = errors.New("unknown scheme")

// checkConcurrency bounds CheckAll fan-out.
const checkConcurrency = 8

type Engine struct {
	registry *registry.Registry
	logger   *zap.Logger
}

func New(reg *registry.Registry, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{registry: reg, logger: logger}
}

// Check evaluates one applicant against one scheme on the chosen backend.
// The applicant id keys the facts asserted into a reasoner session; any
// stable identifier works.
func (e *Engine) Check(ctx context.Context, code, applicantID string, rec applicant.Record, backend eval.Backend) (*eval.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := e.registry.Get(code)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, code)
	}

	switch backend {
	case eval.BackendReasoner:
		if entry.Program == nil {
			return nil, fmt.Errorf("scheme %s has no compiled program: %w", code, entry.CompileErr)
		}
		session, err := reasoner.NewSession(entry.Program, e.logger)
		if err != nil {
			return nil, err
		}
		res, err := session.Check(applicantID, rec)
		if err != nil {
			return nil, err
		}
		e.logger.Debug("reasoner check complete",
			zap.String("scheme", code),
			zap.String("applicant", applicantID),
			zap.Bool("eligible", res.IsEligible))
		return res, nil
	default:
		res := eval.Check(entry.Definition, rec)
		e.logger.Debug("direct check complete",
			zap.String("scheme", code),
			zap.String("applicant", applicantID),
			zap.Bool("eligible", res.IsEligible))
		return res, nil
	}
}

// CheckAll evaluates the applicant against every scheme in the catalog.
// Results come back ordered by scheme code regardless of which evaluation
// finished first.
func (e *Engine) CheckAll(ctx context.Context, applicantID string, rec applicant.Record, backend eval.Backend) ([]*eval.Result, error) {
	entries := e.registry.List()

	var mu sync.Mutex
	results := make([]*eval.Result, 0, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(checkConcurrency)
	for _, entry := range entries {
		code := entry.Definition.Code
		g.Go(func() error {
			res, err := e.Check(ctx, code, applicantID, rec, backend)
			if err != nil {
				return fmt.Errorf("scheme %s: %w", code, err)
			}
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SchemeCode < results[j].SchemeCode
	})
	return results, nil
}

// Compiled returns the rendered logic program for a scheme.
func (e *Engine) Compiled(code string) (string, error) {
	entry, ok := e.registry.Get(code)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownScheme, code)
	}
	if entry.Program == nil {
		return "", fmt.Errorf("scheme %s has no compiled program: %w", code, entry.CompileErr)
	}
	return entry.Program.Source, nil
}
