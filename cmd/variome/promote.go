package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"

	"github.com/variome/variome/anchor"
)

func (c maincmd) promote(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		anchorID = fs.String("anchor", "", "anchor ID to evaluate")
		force    = fs.Bool("force", false, "rebase even if promotion is not due")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *anchorID == "" {
		return errors.New("must supply -anchor")
	}

	p := anchor.NewPromoter(c.s, c.locks, c.cfg)

	candidate, due, err := p.Evaluate(ctx, *anchorID)
	if err != nil {
		return errors.Wrapf(err, "evaluating anchor %s", *anchorID)
	}
	if candidate == "" {
		fmt.Println("no promotion candidate")
		return nil
	}
	if !due && !*force {
		fmt.Printf("candidate %s, promotion not due (use -force to rebase anyway)\n", candidate)
		return nil
	}

	newID, err := p.Rebase(ctx, *anchorID, candidate)
	if err != nil {
		return errors.Wrapf(err, "rebasing anchor %s onto %s", *anchorID, candidate)
	}
	fmt.Printf("promoted %s to new anchor %s\n", candidate, newID)
	return nil
}
