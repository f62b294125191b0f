// Package i18n resolves user-facing text for the active locale: catalog
// loading with default-locale fallback, positional templates, CLDR plural
// selection and locale-aware number and time formatting.
//
// Catalogs are key→template tables. Plural-capable keys carry suffixed
// variants (users.online.zero, users.online.one, users.online.other, …);
// the bare key is the fallback when no variant applies.
//
// An Engine is safe for concurrent use. SetLocale blocks on the loader and
// is meant to run inside a tea.Cmd; readers always see one whole catalog.
package i18n

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Defaults used when no options are given.
const (
	DefaultLocale = "en"
)

// DefaultSupported lists the locales shipped with the client.
var DefaultSupported = []string{"en", "ca"}

// Translator is the read side of the engine, used by renderers.
type Translator interface {
	Translate(key string, args ...any) string
	Pluralize(key string, count int, args ...any) string
	FormatTimestamp(iso string) string
	FormatNumber(n int) string
	Locale() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithSupported sets the locales the engine may switch to.
func WithSupported(locales ...string) Option {
	return func(e *Engine) { e.supportedIDs = lo.Uniq(locales) }
}

// WithDefault sets the fallback locale.
func WithDefault(locale string) Option {
	return func(e *Engine) { e.defaultLocale = locale }
}

// WithPreferences persists every resolved locale to p.
func WithPreferences(p Preferences) Option {
	return func(e *Engine) { e.prefs = p }
}

// WithLocation sets the time zone timestamps are displayed in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// WithDevMode decorates missing keys so they stand out on screen.
func WithDevMode(dev bool) Option {
	return func(e *Engine) { e.dev = dev }
}

// WithLogger sets the logger for load and fallback diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// active is the immutable view readers work from.
type active struct {
	catalog *Catalog
	tag     language.Tag
	printer *message.Printer
}

// Engine is the localization engine.
type Engine struct {
	loader        Loader
	supportedIDs  []string
	supported     []language.Tag
	matcher       language.Matcher
	defaultLocale string
	prefs         Preferences
	loc           *time.Location
	dev           bool
	logger        *log.Logger

	current atomic.Pointer[active]

	mu        sync.Mutex
	issued    uint64 // SetLocale calls started
	applied   uint64 // generation of the catalog in effect
	missing   map[string]struct{}
	observers map[int]func(locale string)
	nextObs   int
}

// New creates an engine. Until the first successful SetLocale, the engine
// serves an empty catalog for the default locale, so every lookup returns
// its key.
func New(loader Loader, opts ...Option) *Engine {
	e := &Engine{
		loader:        loader,
		supportedIDs:  DefaultSupported,
		defaultLocale: DefaultLocale,
		loc:           time.Local,
		logger:        log.Default(),
		missing:       make(map[string]struct{}),
		observers:     make(map[int]func(string)),
	}
	for _, opt := range opts {
		opt(e)
	}
	if !lo.Contains(e.supportedIDs, e.defaultLocale) {
		e.supportedIDs = append([]string{e.defaultLocale}, e.supportedIDs...)
	}
	for _, id := range e.supportedIDs {
		e.supported = append(e.supported, language.Make(id))
	}
	e.matcher = language.NewMatcher(e.supported)
	e.current.Store(e.newActive(NewCatalog(e.defaultLocale, nil)))
	return e
}

func (e *Engine) newActive(c *Catalog) *active {
	tag := language.Make(c.Locale())
	return &active{catalog: c, tag: tag, printer: message.NewPrinter(tag)}
}

// Supported returns the locales the engine may switch to, default first
// when it was not listed explicitly.
func (e *Engine) Supported() []string {
	return append([]string(nil), e.supportedIDs...)
}

// Default returns the fallback locale.
func (e *Engine) Default() string { return e.defaultLocale }

// Locale returns the locale of the catalog in effect.
func (e *Engine) Locale() string { return e.current.Load().catalog.Locale() }

// Resolve maps a requested locale onto a supported one. Region variants
// match their language ("ca-ES" → "ca"); anything else yields the default.
func (e *Engine) Resolve(locale string) string {
	locale = strings.TrimSpace(locale)
	if lo.Contains(e.supportedIDs, locale) {
		return locale
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return e.defaultLocale
	}
	_, idx, conf := e.matcher.Match(tag)
	if conf == language.No || idx < 0 || idx >= len(e.supportedIDs) {
		return e.defaultLocale
	}
	return e.supportedIDs[idx]
}

// Init selects the startup locale: the stored preference if there is one,
// otherwise fallback (typically EnvLocale()).
func (e *Engine) Init(ctx context.Context, fallback string) (string, error) {
	requested := fallback
	if e.prefs != nil {
		stored, err := e.prefs.Load()
		if err != nil {
			e.logger.Printf("i18n: reading preference: %v", err)
		} else if stored != "" {
			requested = stored
		}
	}
	return e.SetLocale(ctx, requested)
}

// SetLocale resolves locale, loads its catalog and makes it active. If the
// load fails for a non-default locale, the default is tried once. When both
// fail the call returns a *LoadError and the previous catalog stays.
//
// Calls may overlap. The last call issued wins: a load that completes after
// a newer call has applied its catalog is discarded with ErrSuperseded.
func (e *Engine) SetLocale(ctx context.Context, locale string) (string, error) {
	e.mu.Lock()
	e.issued++
	gen := e.issued
	e.mu.Unlock()

	resolved := e.Resolve(locale)
	if resolved != locale {
		e.logger.Printf("i18n: locale %q not available, using %q", locale, resolved)
	}

	messages, err := e.loader.Load(ctx, resolved)
	if err != nil && resolved != e.defaultLocale {
		e.logger.Printf("i18n: loading %q failed (%v), falling back to %q", resolved, err, e.defaultLocale)
		resolved = e.defaultLocale
		messages, err = e.loader.Load(ctx, resolved)
	}
	if err != nil {
		return "", &LoadError{Locale: locale, Err: err}
	}

	cat := NewCatalog(resolved, messages)

	e.mu.Lock()
	if gen < e.applied {
		e.mu.Unlock()
		e.logger.Printf("i18n: discarding stale catalog %q", resolved)
		return resolved, ErrSuperseded
	}
	e.applied = gen
	e.current.Store(e.newActive(cat))
	observers := make([]func(string), 0, len(e.observers))
	ids := lo.Keys(e.observers)
	sort.Ints(ids)
	for _, id := range ids {
		observers = append(observers, e.observers[id])
	}
	e.mu.Unlock()

	e.logger.Printf("i18n: loaded %d translations for locale %s", cat.Len(), resolved)

	if e.prefs != nil {
		if err := e.prefs.Save(resolved); err != nil {
			e.logger.Printf("i18n: saving preference: %v", err)
		}
	}
	for _, fn := range observers {
		fn(resolved)
	}
	return resolved, nil
}

// OnChange registers fn to be called after every applied locale change.
// The returned function removes the observer.
func (e *Engine) OnChange(fn func(locale string)) (cancel func()) {
	e.mu.Lock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = fn
	e.mu.Unlock()
	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

// Translate returns the template for key with {0}, {1}, … replaced by args.
// A key missing from the catalog is returned as is and recorded.
func (e *Engine) Translate(key string, args ...any) string {
	cur := e.current.Load()
	tmpl, ok := cur.catalog.lookup(key)
	if !ok {
		return e.missingKey(key, key)
	}
	return substitute(tmpl, args)
}

// Has reports whether the active catalog defines key.
func (e *Engine) Has(key string) bool {
	_, ok := e.current.Load().catalog.lookup(key)
	return ok
}

// Pluralize picks the variant of key for count under the active locale's
// plural rules. An explicit key.zero wins for 0. Lookup order is
// key.<category>, then the bare key. The locale-formatted count
// is {0}; args follow as {1}, {2}, ….
func (e *Engine) Pluralize(key string, count int, args ...any) string {
	cur := e.current.Load()
	all := append([]any{cur.format(count)}, args...)

	category := PluralCategory(cur.tag, count)
	candidates := []string{key + "." + category}
	if count == 0 && category != CategoryZero {
		candidates = append([]string{key + "." + CategoryZero}, candidates...)
	}
	for _, k := range candidates {
		if tmpl, ok := cur.catalog.lookup(k); ok {
			return substitute(tmpl, all)
		}
	}
	if tmpl, ok := cur.catalog.lookup(key); ok {
		return substitute(tmpl, all)
	}
	return e.missingKey(key+"."+category, key)
}

// FormatTimestamp formats an ISO-8601 timestamp with the catalog's
// format.time layout in the engine's time zone. Input that does not parse
// is returned unchanged.
func (e *Engine) FormatTimestamp(iso string) string {
	if strings.TrimSpace(iso) == "" {
		return ""
	}
	t, err := parseTimestamp(iso, e.loc)
	if err != nil {
		return iso
	}
	layout, ok := e.current.Load().catalog.lookup("format.time")
	if !ok || layout == "" {
		layout = defaultTimeLayout
	}
	return t.In(e.loc).Format(layout)
}

// FormatNumber formats n with the active locale's digit grouping.
func (e *Engine) FormatNumber(n int) string {
	return e.current.Load().format(n)
}

func (a *active) format(n int) string {
	return a.printer.Sprint(number.Decimal(n))
}

// MissingKeys returns the keys looked up but absent, sorted.
func (e *Engine) MissingKeys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := lo.Keys(e.missing)
	sort.Strings(keys)
	return keys
}

func (e *Engine) missingKey(record, display string) string {
	e.mu.Lock()
	_, seen := e.missing[record]
	e.missing[record] = struct{}{}
	e.mu.Unlock()
	if !seen {
		e.logger.Printf("i18n: missing translation key: %s", record)
	}
	if e.dev {
		return "⚠ " + display + " ⚠"
	}
	return display
}
