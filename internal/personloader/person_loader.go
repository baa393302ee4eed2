package personloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/gradtrack/internal/domain"
	"github.com/rpattn/gradtrack/internal/repository"

	"github.com/graph-gophers/dataloader"
)

// PersonLoader batches and caches person lookups by document number. A loader
// belongs to one import run; its cache is never shared. Only successful
// lookups stay cached.
type PersonLoader struct {
	Loader *dataloader.Loader
}

// NewPersonLoader creates a loader that fetches persons through repo
func NewPersonLoader(repo repository.PersonRepository) *PersonLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		documents := keys.Keys()

		people, err := repo.ListByDocuments(ctx, documents)
		if err != nil {
			results := make([]*dataloader.Result, len(keys))
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map document -> person for ordering
		byDocument := make(map[string]domain.Person, len(people))
		for _, p := range people {
			byDocument[p.DocumentNumber] = p
		}

		// Build results in the same order as keys; absent persons load as nil
		results := make([]*dataloader.Result, len(keys))
		for i, doc := range documents {
			if p, ok := byDocument[doc]; ok {
				person := p
				results[i] = &dataloader.Result{Data: &person}
			} else {
				results[i] = &dataloader.Result{Data: nil}
			}
		}

		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond))

	return &PersonLoader{Loader: loader}
}

// Load returns the person with the given document, or nil when none is stored
func (l *PersonLoader) Load(ctx context.Context, document string) (*domain.Person, error) {
	key := dataloader.StringKey(document)
	value, err := l.Loader.Load(ctx, key)()
	if err != nil {
		l.Loader.Clear(ctx, key)
		return nil, err
	}
	return asPerson(value)
}

// LoadMany fetches several documents in one batch. The result is aligned
// with documents; missing persons are nil.
func (l *PersonLoader) LoadMany(ctx context.Context, documents []string) ([]*domain.Person, error) {
	if len(documents) == 0 {
		return nil, nil
	}
	keys := dataloader.NewKeysFromStrings(documents)
	values, errs := l.Loader.LoadMany(ctx, keys)()
	var firstErr error
	for i, err := range errs {
		if err == nil {
			continue
		}
		// Failed lookups are retried by the next caller instead of cached.
		l.Loader.Clear(ctx, keys[i])
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	people := make([]*domain.Person, len(values))
	for i, value := range values {
		person, err := asPerson(value)
		if err != nil {
			return nil, err
		}
		people[i] = person
	}
	return people, nil
}

// Prime replaces the cached value for the person's document
func (l *PersonLoader) Prime(ctx context.Context, person domain.Person) {
	key := dataloader.StringKey(person.DocumentNumber)
	l.Loader.Clear(ctx, key).Prime(ctx, key, &person)
}

func asPerson(value interface{}) (*domain.Person, error) {
	if value == nil {
		return nil, nil
	}
	person, ok := value.(*domain.Person)
	if !ok {
		return nil, fmt.Errorf("unexpected loader value %T", value)
	}
	return person, nil
}
