package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/variome/variome/theory"
)

func (c maincmd) putTheory(ctx context.Context, fs *flag.FlagSet, args []string) error {
	input := fs.String("in", "", "theory JSON file (default: stdin)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	r := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			return errors.Wrapf(err, "opening %s", *input)
		}
		defer f.Close()
		r = f
	}

	var t theory.Theory
	if err = json.NewDecoder(r).Decode(&t); err != nil {
		return errors.Wrap(err, "decoding theory")
	}
	if err = c.s.PutTheory(ctx, t); err != nil {
		return errors.Wrapf(err, "storing theory %s@%s", t.ID, t.Version)
	}
	fmt.Printf("stored %s@%s\n", t.ID, t.Version)
	return nil
}

func (c maincmd) fork(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		parent  = fs.String("parent", "", "parent theory ID")
		version = fs.String("version", "", "parent theory version")
		newID   = fs.String("id", "", "new theory ID")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *parent == "" || *version == "" || *newID == "" {
		return errors.New("must supply -parent, -version, and -id")
	}

	forked, err := theory.Fork(ctx, c.s, *parent, *version, *newID)
	if err != nil {
		return errors.Wrapf(err, "forking %s@%s", *parent, *version)
	}
	fmt.Printf("forked %s@%s from %s@%s\n", forked.ID, forked.Version, *parent, *version)
	return nil
}

func (c maincmd) ancestry(ctx context.Context, fs *flag.FlagSet, args []string) error {
	theoryID := fs.String("theory", "", "theory ID")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *theoryID == "" {
		return errors.New("must supply -theory")
	}

	ancestors, err := theory.Ancestry(ctx, c.s, *theoryID)
	if err != nil {
		return errors.Wrapf(err, "walking ancestry of %s", *theoryID)
	}
	for _, id := range ancestors {
		fmt.Println(id)
	}
	return nil
}

func (c maincmd) children(ctx context.Context, fs *flag.FlagSet, args []string) error {
	theoryID := fs.String("theory", "", "theory ID")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *theoryID == "" {
		return errors.New("must supply -theory")
	}

	children, err := theory.Children(ctx, c.s, *theoryID)
	if err != nil {
		return errors.Wrapf(err, "listing children of %s", *theoryID)
	}
	for _, id := range children {
		fmt.Println(id)
	}
	return nil
}
