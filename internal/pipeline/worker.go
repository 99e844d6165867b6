package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgallion1/stepdeck/internal/notes"
	"golang.org/x/sync/errgroup"
)

// NotesFile is the markdown source of a deck, relative to its locale dir.
const NotesFile = "notes.md"

// SlidesDir holds hand-written slide overrides in the source tree and the
// built slides in the output tree.
const SlidesDir = "slides"

// Builder turns the source tree into the served deck.
//
// Source layout: <source>/[<locale>/]notes.md and optional
// <source>/[<locale>/]slides/<N>.html overrides.
// Output layout: <output>/[<locale>/]notes.html, notes.css, slides/<N>.html.
type Builder struct {
	source  string
	output  string
	locales []string
	log     *slog.Logger

	mu       sync.Mutex
	lastHash string
}

func NewBuilder(source, output string, locales []string, log *slog.Logger) *Builder {
	if len(locales) == 0 {
		locales = []string{""}
	}
	return &Builder{
		source:  source,
		output:  output,
		locales: locales,
		log:     log,
	}
}

type localeBuild struct {
	locale string
	notes  *notes.Notes
	slides Slides
}

// Process runs a full build for job.
func (b *Builder) Process(ctx context.Context, job *Job) {
	log := b.log.With("job_id", job.ID, "trigger", job.Trigger)
	job.SetLocales(len(b.locales))

	// Phase 1: Parse every locale's notes.
	job.SetStatus(StatusParsing, "parsing")
	builds := make([]*localeBuild, len(b.locales))
	g, gctx := errgroup.WithContext(ctx)
	for i, locale := range b.locales {
		i, locale := i, locale
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := b.parse(locale)
			if err != nil {
				return err
			}
			builds[i] = &localeBuild{locale: locale, notes: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.fail(log, job, "parsing", err)
		return
	}

	// Phase 2: Split notes into slides and apply overrides.
	job.SetStatus(StatusSplitting, "splitting")
	var hashInput strings.Builder
	for _, lb := range builds {
		slides, err := SplitSlides(lb.notes.HTML())
		if err != nil {
			b.fail(log, job, "splitting", fmt.Errorf("locale %q: %w", lb.locale, err))
			return
		}
		slides, err = slides.WithOverrides(filepath.Join(b.source, lb.locale, SlidesDir))
		if err != nil {
			b.fail(log, job, "splitting", fmt.Errorf("locale %q: %w", lb.locale, err))
			return
		}
		lb.slides = slides

		hashInput.WriteString(lb.locale)
		hashInput.WriteString(lb.notes.HTML())
		hashInput.WriteString(lb.notes.CSS())
		for _, s := range slides {
			hashInput.WriteString(s)
		}
	}

	hash := ContentHashHex([]byte(hashInput.String()))
	job.SetContentHash(hash)
	if b.unchanged(hash) {
		log.Info("deck unchanged, skipping write", "content_hash", hash)
		for range builds {
			job.LocaleBuilt(0)
		}
		job.SetStatus(StatusUnchanged, "done")
		return
	}

	// Phase 3: Write every locale.
	job.SetStatus(StatusWriting, "writing")
	g, gctx = errgroup.WithContext(ctx)
	for _, lb := range builds {
		lb := lb
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := b.write(lb); err != nil {
				return err
			}
			job.LocaleBuilt(len(lb.slides))
			log.Info("locale built", "locale", lb.locale, "slides", len(lb.slides))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.fail(log, job, "writing", err)
		return
	}

	b.mu.Lock()
	b.lastHash = hash
	b.mu.Unlock()
	job.SetStatus(StatusCompleted, "done")
	log.Info("build complete", "locales", len(builds), "content_hash", hash)
}

func (b *Builder) parse(locale string) (*notes.Notes, error) {
	path := filepath.Join(b.source, locale, NotesFile)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	n, err := notes.FromMarkdown(src)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", locale, err)
	}
	if err := n.AnimateSteps(); err != nil {
		return nil, fmt.Errorf("locale %q: %w", locale, err)
	}
	return n, nil
}

func (b *Builder) write(lb *localeBuild) error {
	dir := filepath.Join(b.output, lb.locale)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, "notes.html"), []byte(lb.notes.HTML())); err != nil {
		return fmt.Errorf("write notes: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, "notes.css"), []byte(lb.notes.CSS())); err != nil {
		return fmt.Errorf("write notes stylesheet: %w", err)
	}
	if err := lb.slides.Write(filepath.Join(dir, SlidesDir)); err != nil {
		return fmt.Errorf("locale %q: %w", lb.locale, err)
	}
	return nil
}

// unchanged reports whether hash matches the last written build and that
// build is still on disk.
func (b *Builder) unchanged(hash string) bool {
	b.mu.Lock()
	last := b.lastHash
	b.mu.Unlock()
	if last != hash {
		return false
	}
	_, err := os.Stat(filepath.Join(b.output, b.locales[0], "notes.html"))
	return err == nil
}

func (b *Builder) fail(log *slog.Logger, job *Job, phase string, err error) {
	log.Error("build failed", "phase", phase, "error", err)
	job.AddError(err.Error())
	job.SetStatus(StatusFailed, phase)
}
