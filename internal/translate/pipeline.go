package translate

import (
	"context"
	"time"

	"github.com/craig7351/youtube-eng-cloud/internal/subtitle"
	"github.com/craig7351/youtube-eng-cloud/pkg/log"
)

// Pipeline translates cue sets sentence by sentence, reporting progress to
// the registry as it goes.
type Pipeline struct {
	provider Provider
	cache    *Cache
	store    Store
	registry *Registry
	source   string
	target   string
}

func NewPipeline(provider Provider, cache *Cache, store Store, registry *Registry, source, target string) *Pipeline {
	return &Pipeline{
		provider: provider,
		cache:    cache,
		store:    store,
		registry: registry,
		source:   source,
		target:   target,
	}
}

// Run translates every cue missing Chinese text, in order. Cues already
// carrying Chinese count as cached. Provider failures leave the cue
// untranslated and the run continues; a later request picks it up again.
// The translation cache is flushed once at the end when anything new was
// translated. The returned slice is a fresh copy with translations filled
// in.
func (p *Pipeline) Run(ctx context.Context, key string, cues []subtitle.SentenceCue) []subtitle.SentenceCue {
	start := time.Now()
	log.Info("Translation job %s starting, %d cues", key, len(cues))

	p.registry.Register(key, len(cues))

	out := make([]subtitle.SentenceCue, len(cues))
	copy(out, cues)

	translated := 0
	cached := 0
	for i := range out {
		if err := ctx.Err(); err != nil {
			log.Warn("Translation job %s canceled at cue %d: %v", key, i+1, err)
			break
		}

		switch {
		case out[i].Chinese != "":
			cached++
		default:
			if hit, ok := p.cache.Get(out[i].English); ok {
				out[i].Chinese = hit
				cached++
				break
			}
			text, err := p.provider.Translate(ctx, out[i].English, p.source, p.target)
			if err != nil {
				log.Warn("Translation job %s: cue %d failed: %v", key, i+1, err)
				break
			}
			out[i].Chinese = text
			p.cache.Put(out[i].English, text)
			translated++
			if translated%10 == 0 {
				log.Info("Translation job %s: %d/%d done, %d translated, %d cached, %.2fs",
					key, i+1, len(out), translated, cached, time.Since(start).Seconds())
			}
		}

		p.registry.Update(key, i+1, translated, cached, time.Since(start).Seconds(), out[i])
	}

	if translated > 0 {
		// Flush on a fresh context so a canceled run still persists what it
		// managed to translate.
		if err := p.cache.Flush(context.Background(), p.store); err != nil {
			log.Warn("Translation job %s: cache flush failed: %v", key, err)
		} else {
			log.Info("Translation job %s: flushed %d new translations", key, translated)
		}
	}

	p.registry.Complete(key)
	log.Info("Translation job %s finished: %d cues, %d translated, %d cached, %.2fs",
		key, len(out), translated, cached, time.Since(start).Seconds())
	return out
}
