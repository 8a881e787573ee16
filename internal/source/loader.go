package source

import (
	"context"
	"errors"
	"log"

	"chatsim/pkg/models"
)

// Loader fetches every built-in source and merges the results.
type Loader struct {
	Sources []Fetcher
}

func NewLoader(sources ...Fetcher) *Loader {
	return &Loader{Sources: sources}
}

// FetchAndMerge fetches characters from all sources. A character id already
// seen from an earlier source is skipped. One broken source does not stop the
// others; an error is returned only when every source failed.
func (l *Loader) FetchAndMerge(ctx context.Context) ([]models.Character, error) {
	seen := make(map[string]string)
	var (
		result []models.Character
		errs   []error
	)

	for _, src := range l.Sources {
		log.Printf("[sources] fetching from %s", src.Key())
		chars, err := src.FetchAll(ctx)
		if err != nil {
			log.Printf("[sources] source %s error: %v", src.Key(), err)
			errs = append(errs, err)
			continue
		}

		for _, ch := range chars {
			if owner, ok := seen[ch.ID]; ok {
				log.Printf("[sources] %s: character %s already provided by %s", src.Key(), ch.ID, owner)
				continue
			}
			seen[ch.ID] = src.Key()
			result = append(result, ch)
		}
	}

	if len(l.Sources) > 0 && len(errs) == len(l.Sources) {
		return nil, errors.Join(errs...)
	}
	return result, nil
}

// LoadInto refreshes cat with freshly fetched characters.
func (l *Loader) LoadInto(ctx context.Context, cat *Catalog) (int, error) {
	chars, err := l.FetchAndMerge(ctx)
	if err != nil {
		return 0, err
	}
	cat.Replace(chars)
	return len(chars), nil
}
