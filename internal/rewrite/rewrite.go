// Package rewrite runs the conditional-block filter over files: read
// fully, filter, write back in place only when the content changed.
// Files are independent of each other; one file's failure never stops
// the run.
package rewrite

import (
	"context"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"swiftstrip/internal/audit"
	"swiftstrip/internal/config"
	"swiftstrip/internal/filter"
)

type Outcome int

const (
	// Failed is the zero value so an unprocessed slot never reads as
	// success.
	Failed Outcome = iota
	// Processed means the content changed and was written back.
	Processed
	// Unchanged means the guard marker was absent or filtering left
	// the content byte-identical.
	Unchanged
	// Missing means the file does not exist.
	Missing
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Unchanged:
		return "unchanged"
	case Missing:
		return "missing"
	case Failed:
		return "error"
	}
	return "invalid"
}

// Result is the outcome for a single file.
type Result struct {
	Path    string
	Outcome Outcome
	Err     error
}

// Pipeline applies the filter to files. The zero value is not usable;
// construct with New.
type Pipeline struct {
	Opts filter.Options

	// DryRun reports outcomes without writing anything back.
	DryRun bool

	// Jobs bounds how many files are processed at once.
	Jobs int

	// Audit, when set, receives one event per completed file.
	Audit *audit.Log

	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		Opts: filter.Options{
			Target:       cfg.Platform,
			Counterpart:  cfg.Counterpart,
			PurgeImports: cfg.PurgeImports,
		},
		Jobs: cfg.Jobs,
		log:  log,
	}
}

// Run processes the files in parallel and returns one result per path,
// in input order. Cancelling ctx stops scheduling; files already in
// flight finish their write.
func (p *Pipeline) Run(ctx context.Context, paths []string) []Result {
	results := make([]Result, len(paths))

	g := new(errgroup.Group)
	g.SetLimit(p.jobs())
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Path: path, Outcome: Failed, Err: err}
			continue
		}
		i, path := i, path
		g.Go(func() error {
			results[i] = p.File(path)
			return nil
		})
	}
	g.Wait()
	return results
}

// File processes a single file: read, pre-check the guard marker,
// filter, and overwrite in place only when the content differs. A
// structural error aborts the write and leaves the file untouched.
func (p *Pipeline) File(path string) Result {
	res, before, after := p.file(path)
	if res.Err != nil {
		p.log.Debug("rewrite failed", zap.String("path", path), zap.Error(res.Err))
	} else {
		p.log.Debug("rewrite done",
			zap.String("path", path),
			zap.String("outcome", res.Outcome.String()))
	}
	if p.Audit != nil {
		ev := audit.Event{Path: path, Outcome: res.Outcome.String()}
		if before != nil {
			ev.Before = audit.HashContent(before)
		}
		if after != nil {
			ev.After = audit.HashContent(after)
		}
		if res.Err != nil {
			ev.Error = res.Err.Error()
		}
		p.Audit.Record(ev)
	}
	return res
}

func (p *Pipeline) file(path string) (res Result, before, after []byte) {
	res.Path = path

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			res.Outcome = Missing
			return res, nil, nil
		}
		res.Outcome = Failed
		res.Err = err
		return res, nil, nil
	}

	content := string(raw)
	if !filter.HasMarker(content, p.Opts.Target) {
		res.Outcome = Unchanged
		return res, raw, raw
	}

	stripped, err := filter.Strip(path, content, p.Opts)
	if err != nil {
		res.Outcome = Failed
		res.Err = err
		return res, raw, nil
	}
	if stripped == content {
		res.Outcome = Unchanged
		return res, raw, raw
	}

	out := []byte(stripped)
	if p.DryRun {
		res.Outcome = Processed
		return res, raw, out
	}
	// 0644 applies only if the file is created; an existing file keeps
	// its permissions.
	if err := os.WriteFile(path, out, 0644); err != nil {
		res.Outcome = Failed
		res.Err = err
		return res, raw, nil
	}
	res.Outcome = Processed
	return res, raw, out
}

func (p *Pipeline) jobs() int {
	if p.Jobs < 1 {
		return 1
	}
	return p.Jobs
}
