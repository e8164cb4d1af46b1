package sources

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// Registry holds the configured adapters and fans searches out across
// them concurrently.
type Registry struct {
	mu        sync.RWMutex
	sources   map[string]Source
	resolvers map[string]PDFResolver
	log       zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		sources:   make(map[string]Source),
		resolvers: make(map[string]PDFResolver),
		log:       log,
	}
}

// Register adds a source; if it also resolves PDF URLs the resolver is
// registered under the same name.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
	if resolver, ok := s.(PDFResolver); ok {
		r.resolvers[s.Name()] = resolver
	}
}

// RegisterResolver adds a lookup-only resolver such as Unpaywall.
func (r *Registry) RegisterResolver(name string, resolver PDFResolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolvers[name] = resolver
}

// Source returns the named source.
func (r *Registry) Source(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

// Resolver returns the resolver registered under name.
func (r *Registry) Resolver(name string) (PDFResolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resolvers[name]
	return res, ok
}

// Names returns the registered source names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SourceResults holds one source's outcome for a query.
type SourceResults struct {
	Source  string
	Results []Result
	Err     error
}

// SearchAll queries every healthy named source concurrently and
// returns per-source outcomes in name order. A failing source
// contributes its error instead of aborting the whole fan-out.
func (r *Registry) SearchAll(ctx context.Context, names []string, query string, limit int) []SourceResults {
	if len(names) == 0 {
		names = r.Names()
	}

	var wg sync.WaitGroup
	outcomes := make([]SourceResults, len(names))
	for i, name := range names {
		src, ok := r.Source(name)
		if !ok {
			r.log.Warn().Str("source", name).Msg("unknown source, skipping")
			outcomes[i] = SourceResults{Source: name}
			continue
		}
		if !src.Healthy() {
			r.log.Debug().Str("source", name).Msg("source unhealthy, skipping")
			outcomes[i] = SourceResults{Source: name}
			continue
		}
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results, err := src.Search(ctx, query, limit)
			if err != nil {
				r.log.Warn().Err(err).Str("source", src.Name()).
					Str("query", query).Msg("search failed")
			} else {
				r.log.Debug().Str("source", src.Name()).Str("query", query).
					Int("results", len(results)).Msg("search done")
			}
			outcomes[i] = SourceResults{Source: src.Name(), Results: results, Err: err}
		}(i, src)
	}
	wg.Wait()
	return outcomes
}

// DefaultRegistry wires up every built-in source with production
// endpoints. The Semantic Scholar key and contact email come from the
// environment and may be empty.
func DefaultRegistry(log zerolog.Logger, s2Key, email string) *Registry {
	r := NewRegistry(log)
	r.Register(NewArxiv())
	r.Register(NewSemanticScholar(s2Key))
	r.Register(NewPubMed())
	r.Register(NewEuropePMC())
	r.Register(NewCrossRef(email))
	r.Register(NewOpenAlex(email))
	r.Register(NewDBLP())
	r.Register(NewBioRxiv())
	r.RegisterResolver(NameUnpaywall, NewUnpaywall(email))
	return r
}
