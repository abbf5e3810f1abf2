// Command variome is a CLI interface to variant stores:
// it ingests individuals' variant data as diffs against shared anchors,
// materializes full variant sets back out,
// and manages theories and their evidence.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/bobg/subcmd"

	"github.com/variome/variome/anchor"
	"github.com/variome/variome/store"
	_ "github.com/variome/variome/store/file"
	_ "github.com/variome/variome/store/logging"
	_ "github.com/variome/variome/store/lru"
	_ "github.com/variome/variome/store/mem"
	_ "github.com/variome/variome/store/offload"
	_ "github.com/variome/variome/store/pg"
	_ "github.com/variome/variome/store/sqlite3"
)

type maincmd struct {
	s     store.Store
	locks *anchor.Locks
	cfg   anchor.Config
}

func main() {
	config := flag.String("config", "variomeconf.json", "path to config file")
	flag.Parse()

	if *config == "" {
		log.Fatal("Config value not set")
	}

	var conf map[string]interface{}
	f, err := os.Open(*config)
	if err != nil {
		log.Fatalf("Opening config file %s: %s", *config, err)
	}
	defer f.Close()

	err = json.NewDecoder(f).Decode(&conf)
	if err != nil {
		log.Fatalf("Decoding config file %s: %s", *config, err)
	}

	typ, ok := conf["type"].(string)
	if !ok {
		log.Fatalf("Config file %s missing `type` parameter", *config)
	}

	ctx := context.Background()

	s, err := store.Create(ctx, typ, conf)
	if err != nil {
		log.Fatalf("Creating %s-type store: %s", typ, err)
	}

	err = subcmd.Run(ctx, maincmd{s: s, locks: anchor.NewLocks(), cfg: anchor.DefaultConfig}, flag.Args())
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"ingest":         {F: c.ingest},
		"materialize":    {F: c.materialize},
		"anchors":        {F: c.anchors},
		"individuals":    {F: c.individuals},
		"rebases":        {F: c.rebases},
		"promote":        {F: c.promote},
		"put-theory":     {F: c.putTheory},
		"fork":           {F: c.fork},
		"ancestry":       {F: c.ancestry},
		"children":       {F: c.children},
		"add-evidence":   {F: c.addEvidence},
		"posterior":      {F: c.posterior},
		"evidence-stats": {F: c.evidenceStats},
	}
}
