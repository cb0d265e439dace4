// Command receiptctl drives the pantrytrack API from a terminal: it reads
// receipts, commits reviewed items and looks up barcodes.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/vbonduro/pantrytrack/internal/client"
	"github.com/vbonduro/pantrytrack/internal/identity"
	"github.com/vbonduro/pantrytrack/internal/reconcile"
)

const usage = `usage: receiptctl [flags] <command> [args]

commands:
  init                  create the default categories
  analyze <image>       read a receipt and print its drafts
  confirm <id> [file]   commit a receipt's drafts with decisions from file (JSON array)
  commit <file>         commit a JSON array of items
  product <barcode>     look up a product

flags:
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "receiptctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("receiptctl", flag.ContinueOnError)
	server := fs.String("server", envOr("PANTRYTRACK_URL", "http://localhost:8080"), "API base URL")
	idFile := fs.String("id-file", identity.DefaultPath(), "file holding this device's user id")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := client.New(*server, identity.NewFileProvider(*idFile))
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	var (
		result any
		err    error
	)
	switch cmd {
	case "init":
		result, err = c.InitCategories(ctx)
	case "analyze":
		if len(rest) != 1 {
			return errors.New("analyze needs an image path")
		}
		result, err = analyze(ctx, c, rest[0])
	case "confirm":
		result, err = confirm(ctx, c, rest)
	case "commit":
		if len(rest) != 1 {
			return errors.New("commit needs a JSON file")
		}
		var items []reconcile.BatchItem
		if err := readJSON(rest[0], &items); err != nil {
			return err
		}
		result, err = c.CommitBatch(ctx, items)
	case "product":
		if len(rest) != 1 {
			return errors.New("product needs a barcode")
		}
		result, err = c.LookupProduct(ctx, rest[0])
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func analyze(ctx context.Context, c *client.Client, path string) (*client.Analysis, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return c.AnalyzeReceipt(ctx, filepath.Base(path), f)
}

func confirm(ctx context.Context, c *client.Client, args []string) (any, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, errors.New("confirm needs a receipt id and an optional decisions file")
	}
	var id int64
	if _, err := fmt.Sscan(args[0], &id); err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid receipt id %q", args[0])
	}
	var decisions []reconcile.Decision
	if len(args) == 2 {
		if err := readJSON(args[1], &decisions); err != nil {
			return nil, err
		}
	}
	return c.ConfirmReceipt(ctx, id, decisions)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
