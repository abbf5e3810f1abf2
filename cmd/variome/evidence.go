package main

import (
	"context"
	"flag"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/variome/variome/theory"
)

func (c maincmd) addEvidence(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		theoryID = fs.String("theory", "", "theory ID")
		version  = fs.String("version", "", "theory version")
		family   = fs.String("family", "", "family ID")
		bf       = fs.Float64("bf", 0, "Bayes factor")
		typ      = fs.String("type", "manual_entry", "evidence type")
		weight   = fs.Float64("weight", 1, "evidence weight")
		source   = fs.String("source", "", "evidence source")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	etype, err := theory.ParseEvidenceType(*typ)
	if err != nil {
		return errors.Wrap(err, "parsing -type")
	}

	acc := theory.NewAccumulator(c.s)
	err = acc.AddEvidence(ctx, theory.Evidence{
		TheoryID:    *theoryID,
		Version:     *version,
		FamilyID:    *family,
		BayesFactor: *bf,
		Type:        etype,
		Weight:      *weight,
		Source:      *source,
	})
	if err != nil {
		return errors.Wrapf(err, "adding evidence to %s@%s", *theoryID, *version)
	}
	fmt.Printf("recorded evidence from %s against %s@%s\n", *family, *theoryID, *version)
	return nil
}

func (c maincmd) posterior(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		theoryID = fs.String("theory", "", "theory ID")
		version  = fs.String("version", "", "theory version")
		prior    = fs.Float64("prior", 0.1, "prior probability")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *theoryID == "" || *version == "" {
		return errors.New("must supply -theory and -version")
	}

	acc := theory.NewAccumulator(c.s)
	snap, err := acc.Posterior(ctx, *theoryID, *version, *prior)
	if err != nil {
		return errors.Wrapf(err, "computing posterior of %s@%s", *theoryID, *version)
	}

	fmt.Printf("posterior %.4f (prior %.4f, accumulated BF %.4f, support %s)\n", snap.Posterior, snap.Prior, snap.AccumulatedBF, snap.Support)
	fmt.Printf("%d evidence records from %d families\n", snap.EvidenceCount, snap.FamiliesAnalyzed)
	return nil
}

func (c maincmd) evidenceStats(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		theoryID = fs.String("theory", "", "theory ID")
		version  = fs.String("version", "", "theory version")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}
	if *theoryID == "" || *version == "" {
		return errors.New("must supply -theory and -version")
	}

	acc := theory.NewAccumulator(c.s)
	stats, err := acc.Stats(ctx, *theoryID, *version)
	if err != nil {
		return errors.Wrapf(err, "computing stats of %s@%s", *theoryID, *version)
	}

	fmt.Printf("%d evidence records from %d families\n", stats.TotalEvidence, stats.UniqueFamilies)
	if stats.TotalEvidence > 0 {
		fmt.Printf("Bayes factors: min %.4f, max %.4f, mean %.4f\n", stats.BayesFactors.Min, stats.BayesFactors.Max, stats.BayesFactors.Mean)
	}

	types := make([]theory.EvidenceType, 0, len(stats.TypeCounts))
	for typ := range stats.TypeCounts {
		types = append(types, typ)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	for _, typ := range types {
		fmt.Printf("  %s: %d\n", typ, stats.TypeCounts[typ])
	}
	return nil
}
