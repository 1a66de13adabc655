// Package filter decides which classes a batch run processes, by class name.
//
// Names may be given in internal form (java/lang/String) or binary form
// (java.lang.String); both are compared in binary form.
package filter

import (
	"strings"
	"sync"
)

// ClassCategory represents the category of a class.
type ClassCategory int

const (
	// CategoryUnknown indicates the class category is unknown.
	CategoryUnknown ClassCategory = iota
	// CategoryJDK indicates JDK classes.
	CategoryJDK
	// CategoryApplication indicates everything else.
	CategoryApplication
)

// String returns the string representation of the category.
func (c ClassCategory) String() string {
	switch c {
	case CategoryJDK:
		return "jdk"
	case CategoryApplication:
		return "application"
	default:
		return "unknown"
	}
}

var defaultJDKPrefixes = []string{
	"java.",
	"javax.",
	"jdk.",
	"sun.",
	"com.sun.",
}

// ClassFilter selects classes by name prefix. It is safe for concurrent use.
type ClassFilter struct {
	mu sync.RWMutex

	jdkPrefixes []string
	include     []string
	exclude     []string
	skipJDK     bool

	categoryCache     map[string]ClassCategory
	categoryCacheSize int
}

// Config holds the filter rules.
type Config struct {
	// Include restricts matches to these prefixes. Empty means everything.
	Include []string
	// Exclude removes matches with these prefixes; it wins over Include.
	Exclude []string
	// SkipJDK rejects JDK classes.
	SkipJDK bool
}

// NewClassFilter creates a filter with the default JDK prefixes.
func NewClassFilter(cfg Config) *ClassFilter {
	return &ClassFilter{
		jdkPrefixes:       append([]string(nil), defaultJDKPrefixes...),
		include:           normalizeAll(cfg.Include),
		exclude:           normalizeAll(cfg.Exclude),
		skipJDK:           cfg.SkipJDK,
		categoryCache:     make(map[string]ClassCategory),
		categoryCacheSize: 10000,
	}
}

// Normalize converts an internal class name to binary form.
func Normalize(className string) string {
	return strings.ReplaceAll(className, "/", ".")
}

func normalizeAll(prefixes []string) []string {
	out := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, Normalize(p))
		}
	}
	return out
}

// Classify returns the category of a class.
func (f *ClassFilter) Classify(className string) ClassCategory {
	if className == "" {
		return CategoryUnknown
	}
	name := Normalize(className)

	f.mu.RLock()
	if cat, ok := f.categoryCache[name]; ok {
		f.mu.RUnlock()
		return cat
	}
	prefixes := f.jdkPrefixes
	f.mu.RUnlock()

	cat := CategoryApplication
	if hasAnyPrefix(name, prefixes) {
		cat = CategoryJDK
	}

	f.mu.Lock()
	if len(f.categoryCache) < f.categoryCacheSize {
		f.categoryCache[name] = cat
	}
	f.mu.Unlock()

	return cat
}

// IsJDK reports whether the class belongs to the JDK.
func (f *ClassFilter) IsJDK(className string) bool {
	return f.Classify(className) == CategoryJDK
}

// Match reports whether a class passes the filter.
func (f *ClassFilter) Match(className string) bool {
	if className == "" {
		return false
	}
	name := Normalize(className)

	f.mu.RLock()
	include, exclude, skipJDK := f.include, f.exclude, f.skipJDK
	f.mu.RUnlock()

	if hasAnyPrefix(name, exclude) {
		return false
	}
	if skipJDK && f.IsJDK(name) {
		return false
	}
	return len(include) == 0 || hasAnyPrefix(name, include)
}

// AddJDKPrefix adds a custom JDK prefix.
func (f *ClassFilter) AddJDKPrefix(prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.jdkPrefixes = append(f.jdkPrefixes, Normalize(prefix))
	f.categoryCache = make(map[string]ClassCategory)
}

// CacheStats returns cache statistics.
func (f *ClassFilter) CacheStats() (size int, maxSize int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.categoryCache), f.categoryCacheSize
}

// SetCacheSize sets the maximum cache size.
func (f *ClassFilter) SetCacheSize(size int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.categoryCacheSize = size
	if len(f.categoryCache) > size {
		f.categoryCache = make(map[string]ClassCategory)
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
