// Package convert maps directories of Zeek logs to converted copies. Each
// input log is decoded, routed by its path to a transform, and written to the
// output directory under the same name without its compression suffix.
package convert

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mimecast/zeekagent/internal/agent"
	"github.com/mimecast/zeekagent/internal/config"
	"github.com/mimecast/zeekagent/internal/constants"
	"github.com/mimecast/zeekagent/internal/errors"
	"github.com/mimecast/zeekagent/internal/io/compress"
	"github.com/mimecast/zeekagent/internal/io/dlog"
	"github.com/mimecast/zeekagent/internal/io/line"
	"github.com/mimecast/zeekagent/internal/metrics"
	"github.com/mimecast/zeekagent/internal/zeek"
)

// Options controls a Converter.
type Options struct {
	// Workers is the number of files converted at once.
	Workers int
	// Unmatched is config.UnmatchedSkip or config.UnmatchedCopy.
	Unmatched string
	// Compression of the output files.
	Compression compress.Kind
	// Progress receives a dot per constants.ProgressInterval records. Nil
	// disables progress output.
	Progress io.Writer
}

// Result describes what happened to one input file.
type Result struct {
	Input  string
	Output string
	// Path is the log type declared by the input header.
	Path   string
	Status string
	Stats  zeek.Stats
}

// Converter converts Zeek logs using a dispatch table.
type Converter struct {
	table agent.Table
	opts  Options
}

// New returns a converter routing log types through table.
func New(table agent.Table, opts Options) *Converter {
	if opts.Workers < 1 {
		opts.Workers = constants.DefaultWorkers
	}
	if opts.Unmatched == "" {
		opts.Unmatched = config.UnmatchedSkip
	}
	return &Converter{table: table, opts: opts}
}

// FromConfig returns the converter described by cfg, wiring the agent
// mapper for all configured paths.
func FromConfig(cfg *config.Config, progress io.Writer) (*Converter, error) {
	assigner, err := agent.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Progress {
		progress = nil
	}
	return New(agent.NewTable(cfg.Paths, agent.NewMapper(assigner)), Options{
		Workers:     cfg.Workers,
		Unmatched:   cfg.Unmatched,
		Compression: cfg.CompressionKind(),
		Progress:    progress,
	}), nil
}

// IsCandidate reports whether a file name looks like a Zeek log. Hidden
// files, which include in-flight outputs, are never candidates.
func IsCandidate(name string) bool {
	base := filepath.Base(name)
	return strings.Contains(base, ".log") && !strings.HasPrefix(base, ".")
}

// Candidates returns the sorted paths of all regular log files directly
// inside dir.
func Candidates(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsCandidate(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// OutputName returns the output file name for the input file name.
func (c *Converter) OutputName(name string) string {
	return compress.StripSuffix(filepath.Base(name)) + c.opts.Compression.Suffix()
}

// ConvertDir converts all candidates of inDir into outDir, creating outDir
// if needed. One failing file does not stop the others; all failures are
// returned together, each naming its file. Of several inputs mapping to the
// same output name, only the first in sort order is converted.
func (c *Converter) ConvertDir(ctx context.Context, inDir, outDir string) ([]Result, error) {
	if err := checkDirs(inDir, outDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, constants.OutputDirMode); err != nil {
		return nil, err
	}
	paths, err := Candidates(inDir)
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(paths))
	errs := errors.NewMultiError()

	owners := make(map[string]string, len(paths))
	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, path := range paths {
		if ctx.Err() != nil {
			errs.Add(ctx.Err())
			break
		}
		name := c.OutputName(path)
		if first, ok := owners[name]; ok {
			results[i] = Result{Input: path, Status: metrics.StatusFailed}
			metrics.ObserveFile(metrics.StatusFailed)
			errs.Add(errors.Wrapf(errors.ErrInvalidArgument,
				"%s and %s both map to %s", first, path, name))
			continue
		}
		owners[name] = path
		g.Go(func() error {
			result, err := c.ConvertFile(ctx, path, outDir)
			results[i] = result
			errs.Add(err)
			return nil
		})
	}
	g.Wait()

	return results, errs.ErrorOrNil()
}

func checkDirs(inDir, outDir string) error {
	in, err := filepath.Abs(inDir)
	if err != nil {
		return err
	}
	out, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	if in == out {
		return errors.Wrapf(errors.ErrInvalidArgument,
			"input and output directory must differ: %s", inDir)
	}
	return nil
}

// ConvertFile converts the log at inPath into outDir. The output is written
// to a temporary file first and renamed into place once complete.
func (c *Converter) ConvertFile(ctx context.Context, inPath, outDir string) (Result, error) {
	result := Result{Input: inPath}

	r, err := zeek.Open(inPath)
	if err != nil {
		metrics.ObserveFile(metrics.StatusFailed)
		return result, err
	}
	defer r.Close()
	result.Path = r.Path()

	transform, ok := c.table.Lookup(r.Path())
	if !ok && c.opts.Unmatched != config.UnmatchedCopy {
		dlog.Common.Debug(inPath, "No transform for log type, skipping", r.Path())
		result.Status = metrics.StatusSkipped
		metrics.ObserveFile(result.Status)
		return result, nil
	}

	result.Output = filepath.Join(outDir, c.OutputName(inPath))
	dlog.Common.Info(inPath, "Mapping", result.Output)

	if err := c.convert(ctx, r, transform, result.Output); err != nil {
		result.Stats = r.Stats()
		metrics.ObserveFile(metrics.StatusFailed)
		return result, errors.Wrap(err, inPath)
	}

	result.Stats = r.Stats()
	result.Status = metrics.StatusConverted
	if transform == nil {
		result.Status = metrics.StatusCopied
	}
	metrics.ObserveFile(result.Status)
	metrics.ObserveRecords(result.Stats.Rows, result.Stats.Comments, result.Stats.Truncated)

	if result.Stats.Truncated > 0 {
		dlog.Common.Warn(inPath, "Rows with missing fields left unchanged", result.Stats.Truncated)
	}
	dlog.Common.Info(inPath, "Done", "rows", result.Stats.Rows, "comments", result.Stats.Comments)
	return result, nil
}

func (c *Converter) convert(ctx context.Context, r *zeek.Reader, transform agent.Transform, outPath string) (err error) {
	header := r.Header()
	if transform != nil {
		if err := transform.TransformHeader(header); err != nil {
			return err
		}
	}

	dir, base := filepath.Split(outPath)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	w, err := zeek.NewCompressedWriter(tmp, c.opts.Compression)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	defer func() {
		if err != nil {
			w.Close()
			os.Remove(tmpName)
		}
	}()

	if err := w.WriteHeader(header); err != nil {
		return err
	}
	p := &recordWriter{w: w, transform: transform, progress: c.opts.Progress}
	if err := line.Drain(ctx, r, p); err != nil {
		return err
	}
	if err := p.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, constants.OutputFileMode); err != nil {
		return err
	}
	return os.Rename(tmpName, outPath)
}

// recordWriter writes every record to w, passing rows through transform
// first when there is one.
type recordWriter struct {
	w         *zeek.Writer
	transform agent.Transform
	progress  io.Writer
	count     uint64
}

func (p *recordWriter) ProcessRecord(rec zeek.Record, lineNum uint64, sourceID string) error {
	if row, ok := rec.(*zeek.Row); ok && p.transform != nil {
		if err := p.transform.TransformRow(row); err != nil {
			return errors.Wrapf(err, "line %d", lineNum)
		}
	}
	if err := p.w.Write(rec); err != nil {
		return err
	}
	p.count++
	if p.progress != nil && p.count%constants.ProgressInterval == 0 {
		io.WriteString(p.progress, ".")
	}
	return nil
}

func (p *recordWriter) Flush() error {
	if p.progress != nil && p.count >= constants.ProgressInterval {
		io.WriteString(p.progress, "\n")
	}
	return p.w.Flush()
}

func (p *recordWriter) Close() error {
	return p.w.Close()
}
