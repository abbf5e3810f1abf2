package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/variome/variome"
)

func (c maincmd) anchors(ctx context.Context, fs *flag.FlagSet, args []string) error {
	label := fs.String("label", "GRCh38", "reference build label")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	return c.s.ListAnchors(ctx, *label, func(a variome.Anchor) error {
		fmt.Printf("%s quality=%.1f used=%d created=%s\n", a.ID, a.Quality, a.UsageCount, a.CreatedAt.Format("2006-01-02"))
		return nil
	})
}

func (c maincmd) individuals(ctx context.Context, fs *flag.FlagSet, args []string) error {
	anchorID := fs.String("anchor", "", "anchor ID")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *anchorID == "" {
		return errors.New("must supply -anchor")
	}

	return c.s.ListIndividuals(ctx, *anchorID, func(individualID string) error {
		diffs, err := c.s.GetDiffs(ctx, *anchorID, individualID)
		if err != nil {
			return errors.Wrapf(err, "getting diffs of %s", individualID)
		}
		fmt.Printf("%s %d diffs\n", individualID, len(diffs))
		return nil
	})
}

func (c maincmd) rebases(ctx context.Context, fs *flag.FlagSet, args []string) error {
	anchorID := fs.String("anchor", "", "old anchor ID")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *anchorID == "" {
		return errors.New("must supply -anchor")
	}

	return c.s.ListRebases(ctx, *anchorID, func(ev variome.RebaseEvent) error {
		fmt.Printf("%s -> %s individual=%s at=%s\n", ev.OldAnchorID, ev.NewAnchorID, ev.IndividualID, ev.At.Format("2006-01-02T15:04:05"))
		return nil
	})
}
