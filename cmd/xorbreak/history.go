package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/RowanDark/xorbreak/internal/history"
)

func (c *cli) openHistory() (*history.Store, int) {
	cfg, ok := c.loadConfig()
	if !ok {
		return nil, 1
	}
	store, err := history.Open(cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(c.stderr, "open history: %v\n", err)
		return nil, 1
	}
	return store, 0
}

func (c *cli) runHistoryList(args []string) int {
	fs := c.flagSet("history list")
	mode := fs.String("mode", "", "only show results of this mode (single, detect, repeating)")
	input := fs.String("input", "", "only show results for this input sha256")
	limit := fs.Int("limit", 20, "maximum number of results")
	format := fs.String("format", formatText, "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !validFormat(*format) {
		fmt.Fprintf(c.stderr, "unsupported format %q\n", *format)
		return 2
	}
	if *limit < 1 {
		fmt.Fprintln(c.stderr, "-limit must be positive")
		return 2
	}

	store, code := c.openHistory()
	if store == nil {
		return code
	}
	defer store.Close()

	recs, err := store.List(context.Background(), history.ListOptions{Mode: *mode, InputSHA256: *input, Limit: *limit})
	if err != nil {
		fmt.Fprintf(c.stderr, "list history: %v\n", err)
		return 1
	}
	if recs == nil {
		recs = []history.Record{}
	}
	if err := c.emit(*format, recs, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMODE\tKEY\tSCORE\tCREATED")
		for _, rec := range recs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", rec.ID, rec.Mode, rec.KeyHex, rec.Score, rec.CreatedAt.Local().Format(time.DateTime))
		}
		_ = tw.Flush()
	}); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) runHistoryShow(args []string) int {
	fs := c.flagSet("history show")
	format := fs.String("format", formatText, "output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(c.stderr, "history show requires a result id")
		return 2
	}
	if !validFormat(*format) {
		fmt.Fprintf(c.stderr, "unsupported format %q\n", *format)
		return 2
	}

	store, code := c.openHistory()
	if store == nil {
		return code
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), fs.Arg(0))
	if err != nil {
		fmt.Fprintf(c.stderr, "history show: %v\n", err)
		return 1
	}
	if err := c.emit(*format, rec, func(w io.Writer) {
		fmt.Fprintf(w, "id: %s\nmode: %s\nkey: %s\nkey size: %d\nscore: %d\ncreated: %s\n\n%s\n",
			rec.ID, rec.Mode, rec.KeyHex, rec.KeySize, rec.Score, rec.CreatedAt.Format(time.RFC3339), rec.Plaintext)
	}); err != nil {
		fmt.Fprintf(c.stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
