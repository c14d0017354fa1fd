package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MeKo-Tech/redliningmap/internal/client"
	"github.com/MeKo-Tech/redliningmap/internal/redlining"
	"github.com/MeKo-Tech/redliningmap/internal/types"
	"github.com/MeKo-Tech/redliningmap/internal/viewport"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search redlining area descriptions and show the matching areas",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("bbox", "", "Restrict the loaded areas to minLat,minLng,maxLat,maxLng")
	searchCmd.Flags().String("focus", "", "Result id to center the view on")
	searchCmd.Flags().Bool("exact-index", false, "Match results by dataset index before falling back to city and grade")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, searchCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("search.bbox", "bbox")
	mustBind("search.focus", "focus")
	mustBind("search.exact_index", "exact-index")
}

// searchOptions describes one search session.
type searchOptions struct {
	Keyword    string
	BBox       string
	Focus      string
	ExactIndex bool
}

func runSearch(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	backend := client.NewBackend(viper.GetString("backend_url"), client.WithLogger(logger))
	return runSearchSession(cmd.Context(), backend, searchOptions{
		Keyword:    strings.Join(args, " "),
		BBox:       viper.GetString("search.bbox"),
		Focus:      viper.GetString("search.focus"),
		ExactIndex: viper.GetBool("search.exact_index"),
	}, cmd.OutOrStdout())
}

// runSearchSession drives a viewport controller through load, optional
// filter, search and optional focus, then prints the outcome.
func runSearchSession(ctx context.Context, source viewport.DataSource, opts searchOptions, w io.Writer) error {
	var bbox *types.BoundingBox
	if opts.BBox != "" {
		b, err := types.ParseBBoxString(opts.BBox)
		if err != nil {
			return err
		}
		bbox = &b
	}

	controllerOpts := []viewport.Option{viewport.WithLogger(logger)}
	if opts.ExactIndex {
		controllerOpts = append(controllerOpts, viewport.WithCorrelator(redlining.NewCorrelator(redlining.WithExactIndex())))
	}
	c := viewport.NewController(source, controllerOpts...)

	if bbox != nil {
		if err := c.ApplyFilter(ctx, *bbox); err != nil {
			return fmt.Errorf("failed to load redlining data: %w", err)
		}
	} else if err := c.Load(ctx); err != nil {
		return fmt.Errorf("failed to load redlining data: %w", err)
	}

	if err := c.Search(ctx, opts.Keyword); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.Focus != "" {
		if err := c.FocusOnResult(opts.Focus); err != nil {
			return err
		}
	}

	printSession(w, c.Snapshot())
	return nil
}

func printSession(w io.Writer, s viewport.Snapshot) {
	if s.Notice.Message != "" {
		fmt.Fprintln(w, s.Notice.Message)
	}

	for _, r := range s.Results {
		marker := " "
		if r.ID == s.Selected {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-24s %-28s grade %-2s %s  (%s)\n",
			marker, r.ID, r.Name, r.Grade, redlining.GradeColor(r.Grade), r.MatchedField)
	}

	fmt.Fprintf(w, "view: %s lat=%.4f lng=%.4f zoom=%g\n", s.State, s.View.Latitude, s.View.Longitude, s.View.Zoom)
}
