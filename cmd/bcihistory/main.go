// Command bcihistory inspects the run ledger written by bcitrain and the GUI.
//
// Usage:
//
//	bcihistory [-db file] list [-subject N] [-limit N]
//	bcihistory [-db file] show <run-id>
//	bcihistory [-db file] diff <run-id> <run-id>
//	bcihistory [-db file] delete <run-id>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"mi-bci/internal/config"
	"mi-bci/internal/history"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [-db file] <list|show|diff|delete> [args]\n\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	cfg := config.Default()
	cfg.ApplyEnv()

	dbPath := flag.String("db", cfg.HistoryDB, "history database")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	store, err := history.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	args := flag.Args()
	switch args[0] {
	case "list":
		err = list(ctx, store, os.Stdout, args[1:])
	case "show":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		err = show(ctx, store, os.Stdout, args[1])
	case "diff":
		if len(args) != 3 {
			usage()
			os.Exit(1)
		}
		err = diff(ctx, store, os.Stdout, args[1], args[2])
	case "delete":
		if len(args) != 2 {
			usage()
			os.Exit(1)
		}
		err = store.Delete(ctx, args[1])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func list(ctx context.Context, store *history.Store, w io.Writer, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	subject := fs.Int("subject", 0, "only runs of this subject")
	limit := fs.Int("limit", 20, "maximum number of runs (0 for all)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	runs, err := store.List(ctx, *subject, *limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSUBJECT\tEPOCHS\tSVM\tLDA")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Subject, r.Epochs,
			accuracy(r, "SVM"), accuracy(r, "LDA"))
	}
	return tw.Flush()
}

func accuracy(r *history.Run, model string) string {
	for _, m := range r.Models {
		if m.Name == model {
			return fmt.Sprintf("%.4f", m.Accuracy)
		}
	}
	return "-"
}

func show(ctx context.Context, store *history.Store, w io.Writer, id string) error {
	r, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Run:        %s\n", r.ID)
	fmt.Fprintf(w, "Created:    %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Subject:    %d\n", r.Subject)
	if r.Recording != "" {
		digest := r.Recording
		if len(digest) > 12 {
			digest = digest[:12]
		}
		fmt.Fprintf(w, "Recording:  %s (sha256 %s)\n", r.Source, digest)
	}
	fmt.Fprintf(w, "Epochs:     %d (%d held out)\n", r.Epochs, len(r.TestIndices))
	fmt.Fprintf(w, "Classes:    %s\n", strings.Join(r.Classes, ", "))
	fmt.Fprintf(w, "Components: %d\n", r.Components)
	fmt.Fprintf(w, "CSP:        %s\n", strings.Join(r.Outcomes, ", "))
	for _, m := range r.Models {
		fmt.Fprintf(w, "\n%s %s\n", m.Name, m.Params)
		fmt.Fprintf(w, "  Cross-validation Accuracy: %.4f\n", m.CVScore)
		fmt.Fprintf(w, "  Accuracy: %.4f\n", m.Accuracy)
		for _, row := range m.Confusion {
			fmt.Fprintf(w, "  %v\n", row)
		}
	}
	return nil
}

func diff(ctx context.Context, store *history.Store, w io.Writer, a, b string) error {
	ra, err := store.Get(ctx, a)
	if err != nil {
		return err
	}
	rb, err := store.Get(ctx, b)
	if err != nil {
		return err
	}
	changes := history.Diff(ra, rb)
	if len(changes) == 0 {
		fmt.Fprintln(w, "Runs are identical.")
		return nil
	}
	for _, c := range changes {
		fmt.Fprintln(w, c)
	}
	return nil
}
