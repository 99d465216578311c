package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/quickkly/tidyhttp/internal/config"
	"github.com/quickkly/tidyhttp/internal/handler"
	"github.com/quickkly/tidyhttp/internal/logger"
	"github.com/quickkly/tidyhttp/internal/message"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

const ignoreFileName = ".tidyhttpignore"

// appFs is the filesystem used by clean and init
var appFs = afero.NewOsFs()

// =============================================================================
// CLEAN COMMAND DEFINITION
// =============================================================================

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [files...]",
	Short: "Remove extra blank lines from saved HTTP messages",
	Long: `Clean raw HTTP requests or responses stored in files, or read from stdin.

Each input is treated as a complete message: the header block and separator are
kept as-is, text bodies have runs of blank lines collapsed, and binary bodies only
lose leading blank lines. With --body-only each input is treated as a bare body.

Files matching patterns in .tidyhttpignore are skipped.

Examples:
  tidyhttp clean request.http                 # Print the cleaned message
  tidyhttp clean -i captures/*.http -j 8      # Rewrite files in place
  tidyhttp clean --dry-run captures/*.http    # List files that would change
  cat response.http | tidyhttp clean          # Filter stdin`,
	RunE: runClean,
}

var (
	cleanInPlace  bool
	cleanJobs     int
	cleanBodyOnly bool
)

func init() {
	cleanCmd.Flags().BoolVarP(&cleanInPlace, "in-place", "i", false, "rewrite files instead of printing them")
	cleanCmd.Flags().IntVarP(&cleanJobs, "jobs", "j", runtime.NumCPU(), "number of files processed in parallel")
	cleanCmd.Flags().BoolVar(&cleanBodyOnly, "body-only", false, "treat each input as a message body")
}

// cleanOptions controls a clean run
type cleanOptions struct {
	inPlace  bool
	bodyOnly bool
	dryRun   bool
	jobs     int
}

// cleanResult is the outcome for one input
type cleanResult struct {
	path     string
	output   []byte
	modified bool
}

// =============================================================================
// CLEAN COMMAND IMPLEMENTATION
// =============================================================================

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.GetFromContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to get configuration: %w", err)
	}

	ctx := cmd.Context()
	h := handler.NewFromConfig(cfg, logger.FromContext(ctx))
	opts := cleanOptions{
		inPlace:  cleanInPlace,
		bodyOnly: cleanBodyOnly,
		dryRun:   IsDryRun(),
		jobs:     cleanJobs,
	}

	if len(args) == 0 {
		return cleanStdin(ctx, cmd, h, opts)
	}

	paths, err := filterIgnored(appFs, args)
	if err != nil {
		return err
	}

	results, err := cleanFiles(ctx, appFs, h, paths, opts)
	if err != nil {
		return err
	}
	return reportClean(cmd.OutOrStdout(), results, opts)
}

// cleanStdin filters stdin to stdout
func cleanStdin(ctx context.Context, cmd *cobra.Command, h *handler.Handler, opts cleanOptions) error {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return fmt.Errorf("no input files given and stdin is a terminal")
	}
	if opts.inPlace {
		return fmt.Errorf("--in-place requires file arguments")
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}

	res := cleanBuffer(ctx, h, raw, opts)
	res.path = "-"
	return reportClean(cmd.OutOrStdout(), []cleanResult{res}, opts)
}

// cleanFiles processes paths in parallel. With inPlace set, changed files
// are rewritten unless dryRun is also set. Results keep the input order.
func cleanFiles(ctx context.Context, fsys afero.Fs, h *handler.Handler, paths []string, opts cleanOptions) ([]cleanResult, error) {
	results := make([]cleanResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	if opts.jobs > 0 {
		g.SetLimit(opts.jobs)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			raw, err := afero.ReadFile(fsys, path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			res := cleanBuffer(ctx, h, raw, opts)
			res.path = path
			results[i] = res

			if !opts.inPlace || opts.dryRun || !res.modified {
				return nil
			}
			if err := writeFileAtomic(fsys, path, res.output); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			logger.FromContext(ctx).Debug("rewrote file", "path", path, "before", len(raw), "after", len(res.output))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// cleanBuffer runs one input through the handler
func cleanBuffer(ctx context.Context, h *handler.Handler, raw []byte, opts cleanOptions) cleanResult {
	if opts.bodyOnly {
		out, modified := h.HandleBody(ctx, config.ToolCLI, "", message.NewRequest(nil, raw))
		return cleanResult{output: out.Body, modified: modified}
	}

	in := handler.Intercepted{Tool: config.ToolCLI, URL: message.TargetURL(raw), Raw: raw}
	var res message.Result
	if message.DetectKind(raw) == message.KindResponse {
		res = h.HandleResponse(ctx, in)
	} else {
		res = h.HandleRequest(ctx, in)
	}
	return cleanResult{output: res.Bytes, modified: res.Modified}
}

// writeFileAtomic replaces path via a temporary sibling file
func writeFileAtomic(fsys afero.Fs, path string, data []byte) error {
	mode := os.FileMode(0644)
	if info, err := fsys.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(fsys, filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = fsys.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return err
	}
	if err := fsys.Chmod(tmpName, mode); err != nil {
		_ = fsys.Remove(tmpName)
		return err
	}
	return fsys.Rename(tmpName, path)
}

// reportClean prints cleaned output or a summary of changed inputs
func reportClean(w io.Writer, results []cleanResult, opts cleanOptions) error {
	changed := 0
	for _, res := range results {
		if res.modified {
			changed++
		}

		switch {
		case opts.dryRun:
			if res.modified {
				fmt.Fprintf(w, "would clean %s\n", res.path)
			}
		case opts.inPlace:
			if res.modified && IsVerbose() {
				fmt.Fprintf(w, "✓ cleaned %s\n", res.path)
			}
		default:
			if _, err := w.Write(res.output); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
	}

	if (opts.inPlace || opts.dryRun) && !IsQuiet() {
		fmt.Fprintf(w, "%d of %d inputs changed\n", changed, len(results))
	}
	return nil
}

// filterIgnored drops paths matching the patterns in .tidyhttpignore
func filterIgnored(fsys afero.Fs, paths []string) ([]string, error) {
	patterns, err := loadIgnorePatterns(fsys, ignoreFileName)
	if err != nil {
		return nil, err
	}

	kept := make([]string, 0, len(paths))
	for _, path := range paths {
		if !isIgnored(patterns, path) {
			kept = append(kept, path)
		}
	}
	return kept, nil
}

func isIgnored(patterns []string, path string) bool {
	name := filepath.ToSlash(filepath.Clean(path))
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads glob patterns, one per line; a missing file
// yields no patterns.
func loadIgnorePatterns(fsys afero.Fs, name string) ([]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !doublestar.ValidatePattern(line) {
			return nil, fmt.Errorf("%s: invalid pattern %q", name, line)
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return patterns, nil
}
