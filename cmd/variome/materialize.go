package main

import (
	"context"
	"flag"
	"os"

	"github.com/pkg/errors"

	"github.com/variome/variome"
)

func (c maincmd) materialize(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		individual = fs.String("individual", "", "individual ID")
		anchorID   = fs.String("anchor", "", "anchor ID")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *individual == "" || *anchorID == "" {
		return errors.New("must supply -individual and -anchor")
	}

	variants, err := variome.Materialize(ctx, c.s, *individual, *anchorID)
	if err != nil {
		return errors.Wrapf(err, "materializing %s under %s", *individual, *anchorID)
	}

	_, err = os.Stdout.Write(variants.Encode())
	return errors.Wrap(err, "writing variants to stdout")
}
