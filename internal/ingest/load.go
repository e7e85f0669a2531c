package ingest

import (
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/mkealey/salience/internal/event"
)

// LoadGlob reads every CSV matched by the pattern (doublestar syntax, so
// data/**/*.csv works) into one validated store. Files load in sorted path
// order; rows without an explicit id get positional ids across the whole
// load.
func LoadGlob(pattern string, policy event.LoadPolicy) (*event.Store, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %q", pattern)
	}
	sort.Strings(paths)

	var records []event.Record
	for _, path := range paths {
		recs, err := loadFile(path)
		if err != nil {
			if policy == event.SkipInvalid {
				log.Printf("ingest: skipping %s: %v", path, err)
				continue
			}
			return nil, err
		}
		records = append(records, recs...)
	}

	store, err := event.Load(records, policy)
	if err != nil {
		return nil, err
	}
	log.Printf("ingest: loaded %d events from %d files", store.Len(), len(paths))
	return store, nil
}

func loadFile(path string) ([]event.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recs, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Policy maps the config spelling to a load policy.
func Policy(onError string) (event.LoadPolicy, error) {
	switch onError {
	case "", "fail":
		return event.FailFast, nil
	case "skip":
		return event.SkipInvalid, nil
	}
	return event.FailFast, fmt.Errorf("unknown ingest policy %q", onError)
}
