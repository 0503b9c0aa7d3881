// Package orchestrate runs the update pipeline: fetch from analytics,
// render graphs, validate outputs against upload limits, post, and clean
// up old artifacts.
package orchestrate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
	"github.com/engels74/tgraph-bot-go/internal/chat"
	"github.com/engels74/tgraph-bot-go/internal/errclass"
	"github.com/engels74/tgraph-bot-go/internal/graphs"
	"github.com/engels74/tgraph-bot-go/internal/log"
)

// uploadLimit is the chat service's default per-file attachment cap;
// elevatedUploadLimit applies to guilds with boosted upload limits.
const (
	uploadLimit         = 8 << 20
	elevatedUploadLimit = 25 << 20
)

var allowedSuffixes = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// PermanentError wraps a failure that retrying cannot fix (zero valid files
// after validation, or a chat-service auth rejection).
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string           { return e.Err.Error() }
func (e *PermanentError) Unwrap() error           { return e.Err }
func (e *PermanentError) ErrorClass() errclass.Class { return errclass.Permanent }

var _ errclass.Classifiable = (*PermanentError)(nil)

// TransientError wraps a failure worth retrying on the scheduler's next
// attempt (partial render failures, ordinary post failures).
type TransientError struct{ Err error }

func (e *TransientError) Error() string           { return e.Err.Error() }
func (e *TransientError) Unwrap() error           { return e.Err }
func (e *TransientError) ErrorClass() errclass.Class { return errclass.Transient }

var _ errclass.Classifiable = (*TransientError)(nil)

// Target names where rendered output goes and how uploads are validated.
// Set DMUserID instead of ChannelID to deliver by direct message (my_stats)
// rather than posting to a shared channel; the prior-artifact prune step is
// skipped for DM delivery since it only applies to the shared channel.
type Target struct {
	ChannelID          string
	DMUserID           string
	ElevatedUpload     bool
	PostDeleteLookback int
}

// Config is the per-run configuration the orchestrator needs, distinct from
// the top-level ConfigStore so this package stays decoupled from it.
type Config struct {
	TimeRange      analytics.TimeRange
	Enabled        graphs.Enabled
	Colours        graphs.ColorConfig
	Dimensions     graphs.Dimensions
	ArtifactDir    string
	KeepDays       int
}

// Orchestrator wires the three adapters (analytics, graphs, chat) into a
// five-step pipeline: fetch, render, validate, post, prune.
type Orchestrator struct {
	fetcher  analytics.Fetcher
	registry func(dir string, dims graphs.Dimensions) *graphs.Registry
	poster   chat.Poster
	logger   log.Logger
	now      func() time.Time
}

// New returns an Orchestrator. nowFn defaults to time.Now.
func New(fetcher analytics.Fetcher, poster chat.Poster, logger log.Logger, nowFn func() time.Time) *Orchestrator {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Orchestrator{
		fetcher:  fetcher,
		registry: graphs.NewRegistry,
		poster:   poster,
		logger:   logger,
		now:      nowFn,
	}
}

// Result summarises one completed run.
type Result struct {
	PostedFiles   []string
	RenderFailures []error
	CleanedUp     int
}

// Run executes the five-step pipeline for cfg against target. userFilter
// restricts the dataset to one user's plays (my_stats); empty means the
// full-guild run.
func (o *Orchestrator) Run(ctx context.Context, cfg Config, target Target, userFilter string) (Result, error) {
	ds, err := o.fetch(ctx, cfg, userFilter)
	if err != nil {
		return Result{}, err
	}

	reg := o.registry(cfg.ArtifactDir, cfg.Dimensions)
	resolver := graphs.NewResolver(cfg.Colours, nil)
	paths, renderFailures := reg.RenderEnabled(ctx, ds, resolver, cfg.Enabled)

	valid, rejected := o.validate(paths, target.ElevatedUpload)
	for _, r := range rejected {
		o.logger.Warnf("orchestrate: rejected upload candidate %s: %s", r.path, r.reason)
	}

	if len(valid) == 0 {
		return Result{RenderFailures: renderFailures}, &PermanentError{Err: fmt.Errorf("no valid render outputs to post")}
	}

	if err := o.post(ctx, target, valid); err != nil {
		return Result{RenderFailures: renderFailures}, err
	}

	cleaned, err := o.cleanup(cfg.ArtifactDir, cfg.KeepDays)
	if err != nil {
		o.logger.Warnf("orchestrate: cleanup failed: %v", err)
	}

	result := Result{PostedFiles: valid, RenderFailures: renderFailures, CleanedUp: cleaned}
	if len(renderFailures) > 0 {
		return result, &TransientError{Err: multierr.Combine(renderFailures...)}
	}
	return result, nil
}

func (o *Orchestrator) fetch(ctx context.Context, cfg Config, userFilter string) (graphs.Dataset, error) {
	plays, err := o.fetcher.FetchPlayHistory(ctx, cfg.TimeRange)
	if err != nil {
		return graphs.Dataset{}, fmt.Errorf("orchestrate: fetch play history: %w", err)
	}
	monthly, err := o.fetcher.FetchMonthlyPlays(ctx, cfg.TimeRange.Months)
	if err != nil {
		return graphs.Dataset{}, fmt.Errorf("orchestrate: fetch monthly plays: %w", err)
	}

	ds := graphs.Dataset{Plays: plays, Monthly: monthly, GeneratedAt: o.now()}
	if userFilter != "" {
		ds = ds.ForUser(userFilter)
	}
	return ds, nil
}

type rejection struct {
	path, reason string
}

func (o *Orchestrator) validate(paths []string, elevated bool) (valid []string, rejected []rejection) {
	limit := int64(uploadLimit)
	if elevated {
		limit = elevatedUploadLimit
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			rejected = append(rejected, rejection{p, "does not exist"})
			continue
		}
		if info.Size() == 0 {
			rejected = append(rejected, rejection{p, "empty file"})
			continue
		}
		if info.Size() > limit {
			rejected = append(rejected, rejection{p, fmt.Sprintf("exceeds %d byte limit", limit)})
			continue
		}
		if !allowedSuffixes[filepathExt(p)] {
			rejected = append(rejected, rejection{p, "disallowed suffix"})
			continue
		}
		valid = append(valid, p)
	}
	return valid, rejected
}

func (o *Orchestrator) post(ctx context.Context, target Target, validFiles []string) error {
	uploads := make([]chat.UploadFile, len(validFiles))
	for i, p := range validFiles {
		uploads[i] = chat.UploadFile{Path: p, Name: filepath.Base(p)}
	}

	if target.DMUserID != "" {
		if err := o.poster.SendDM(ctx, target.DMUserID, uploads); err != nil {
			return classifyPostError(err)
		}
		return nil
	}

	if err := o.poster.DeletePriorArtifacts(ctx, target.ChannelID, target.PostDeleteLookback); err != nil {
		return classifyPostError(err)
	}
	if err := o.poster.PostFiles(ctx, target.ChannelID, uploads); err != nil {
		return classifyPostError(err)
	}
	return nil
}

func classifyPostError(err error) error {
	if errclass.Classify(err) == errclass.Permanent {
		return &PermanentError{Err: err}
	}
	return &TransientError{Err: err}
}

func (o *Orchestrator) cleanup(dir string, keepDays int) (int, error) {
	if keepDays < 1 {
		return 0, fmt.Errorf("orchestrate: keep_days must be >= 1, got %d", keepDays)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := o.now().AddDate(0, 0, -keepDays)
	var cleaned int
	var errs error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			cleaned++
		}
	}
	return cleaned, errs
}

func filepathExt(p string) string {
	ext := filepath.Ext(p)
	return lowerASCII(ext)
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
