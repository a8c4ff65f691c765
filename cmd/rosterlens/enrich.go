package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/okian/rosterlens/internal/adapters/repository"
	"github.com/okian/rosterlens/internal/adapters/tabular"
	service "github.com/okian/rosterlens/internal/app"
	"github.com/okian/rosterlens/internal/app/pipeline"
	"github.com/okian/rosterlens/internal/domain/export"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/types"
	"github.com/okian/rosterlens/internal/domain/view"
	"github.com/okian/rosterlens/pkg/logger"
)

// enrichFlags shape the view printed and exported after the batch.
type enrichFlags struct {
	format string
	out    string
	scope  string
	search string
	filter string
	top    int
	sort   string
	desc   bool
	quiet  bool
}

func newEnrichCmd(root *rootFlags) *cobra.Command {
	flags := &enrichFlags{}
	cmd := &cobra.Command{
		Use:   "enrich <roster.csv|roster.xlsx>",
		Short: "Enrich a roster once and print the result",
		Long: `Reads the roster, fetches every LeetCode profile and prints the resulting
view as a table. --search, --filter and --top narrow the view; --sort orders it.
--out writes the view (or the invalid-profile report with --scope invalid).

Example:
  rosterlens enrich class.xlsx --filter top --top 5 --out top5.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd.Context(), root, flags, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.format, "format", "", "input format: csv or xlsx (default from the file extension)")
	f.StringVarP(&flags.out, "out", "o", "", "export file; format from its extension")
	f.StringVar(&flags.scope, "scope", export.Full.Name, "export scope: displayed or invalid")
	f.StringVar(&flags.search, "search", "", "keep records matching this text")
	f.StringVar(&flags.filter, "filter", "", "named filter: all, valid, invalid, zero, top")
	f.IntVar(&flags.top, "top", 0, "size of the top filter; implies --filter top")
	f.StringVar(&flags.sort, "sort", "", "sort key, e.g. problems_solved or name")
	f.BoolVar(&flags.desc, "desc", false, "sort descending")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "do not print progress")
	return cmd
}

func runEnrich(ctx context.Context, root *rootFlags, flags *enrichFlags, path string, stdout, stderr io.Writer) error {
	// progress lines and log records share stderr
	stderr = &syncWriter{w: stderr}
	cfg, log, err := setup(ctx, root, stderr)
	if err != nil {
		return err
	}

	format, err := inputFormat(flags.format, path)
	if err != nil {
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open roster: %w", err)
	}
	defer func() { _ = in.Close() }()

	fetcher, cached, closeCache := newFetcher(ctx, cfg, log)
	defer closeCache()

	opts, err := serviceOptions(cfg, fetcher, cached, log)
	if err != nil {
		return err
	}
	if !flags.quiet {
		opts = append(opts, service.WithProgressListener(progressPrinter(stderr)))
	}
	svc := service.New(opts...)

	res, err := svc.Enrich(ctx, in, format)
	if err != nil {
		return err
	}
	log.Info(ctx, "enrichment finished",
		logger.String("batch_id", res.BatchID),
		logger.Int("found", res.Found),
		logger.Int("not_found", res.NotFound),
		logger.Int("timed_out", res.TimedOut),
		logger.Duration("took", res.Duration),
	)

	v, err := svc.ApplyView(ctx, flags.query())
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(stdout, renderView(v)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(stdout, renderSummary(svc.Summary(ctx))); err != nil {
		return err
	}

	if flags.out == "" {
		return nil
	}
	return writeExport(ctx, svc, flags.out, flags.scope)
}

func inputFormat(explicit, path string) (tabular.Format, error) {
	if explicit != "" {
		return tabular.ParseFormat(explicit)
	}
	return tabular.FormatFromName(path)
}

func (f *enrichFlags) query() types.ViewQuery {
	q := types.ViewQuery{Search: f.search, Filter: f.filter, Sort: f.sort}
	if f.top > 0 {
		q.N = f.top
		if q.Filter == "" {
			q.Filter = view.FilterTop
		}
	}
	if q.Sort != "" {
		q.Direction = string(view.Asc)
		if f.desc {
			q.Direction = string(view.Desc)
		}
	}
	return q
}

func writeExport(ctx context.Context, svc *service.Service, path, scope string) error {
	format, err := tabular.FormatFromName(path)
	if err != nil {
		return err
	}
	// Rendered in memory first so a failed export leaves no file behind.
	var buf bytes.Buffer
	if err := svc.Export(ctx, &buf, scope, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // export files are meant to be shared
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// progressPrinter writes one line per accepted progress observation.
func progressPrinter(w io.Writer) pipeline.Sink {
	return pipeline.SinkFunc(func(p model.Progress) {
		_, _ = fmt.Fprintf(w, "[%3d%%] %s\n", p.Percent, p.Status)
	})
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	invalidStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	summaryStyle = lipgloss.NewStyle().Faint(true)
)

var viewHeaders = []string{"#", "Name", "Roll", "LeetCode", "Total", "Easy", "Medium", "Hard", "Valid"}

// renderView draws the view as a bordered table. Rows with a failed lookup
// are highlighted.
func renderView(v repository.View) string {
	rows := make([][]string, 0, len(v.Records))
	for _, r := range v.Records {
		row := viewRow(r)
		if view.InvalidProfile(r) {
			for i := range row {
				row[i] = invalidStyle.Render(row[i])
			}
		}
		rows = append(rows, row)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(viewHeaders...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	out := t.Render()
	if v.Label != "" {
		out = summaryStyle.Render(v.Label) + "\n" + out
	}
	return out
}

func viewRow(r model.StudentRecord) []string {
	valid := "-"
	if r.Eligible() && r.Enriched {
		valid = "no"
		if r.ProfileFound {
			valid = "yes"
		}
	}
	return []string{
		strconv.Itoa(r.Row + 1),
		r.Name,
		r.RollNumber,
		r.Username,
		strconv.Itoa(r.ProblemsSolved),
		strconv.Itoa(r.Easy),
		strconv.Itoa(r.Medium),
		strconv.Itoa(r.Hard),
		valid,
	}
}

func renderSummary(s view.Summary) string {
	return summaryStyle.Render(fmt.Sprintf(
		"%d students, %d with usernames, %d valid, %d invalid, %d with zero solved, average %.1f",
		s.Total, s.WithUsername, s.Valid, s.Invalid, s.ZeroSolved, s.AverageSolved,
	))
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
