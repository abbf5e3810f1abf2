package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/variome/variome/ingest"
)

func (c maincmd) ingest(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		individual = fs.String("individual", "", "individual ID")
		label      = fs.String("label", "GRCh38", "reference build label")
		input      = fs.String("in", "", "VCF input file (default: stdin)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *individual == "" {
		return errors.New("must supply -individual")
	}

	var r io.Reader = os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			return errors.Wrapf(err, "opening %s", *input)
		}
		defer f.Close()
		r = f
	}

	records, err := ingest.ParseVariants(r)
	if err != nil {
		return errors.Wrap(err, "parsing input")
	}

	ing := &ingest.Ingester{S: c.s, Locks: c.locks, Cfg: c.cfg}
	result, err := ing.Ingest(ctx, *individual, *label, records)
	if err != nil {
		return errors.Wrapf(err, "ingesting %s", *individual)
	}

	fmt.Printf("anchor %s (created=%v), %d diffs, compression %.1fx\n", result.AnchorID, result.AnchorCreated, result.DiffCount, result.CompressionRatio)
	for i, recErr := range result.Rejected {
		fmt.Fprintf(os.Stderr, "rejected record %d: %s\n", i, recErr)
	}
	return nil
}
