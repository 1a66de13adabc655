package filter

import (
	"sync"
	"testing"
)

func TestClassFilter_Classify(t *testing.T) {
	f := NewClassFilter(Config{})

	tests := []struct {
		className string
		expected  ClassCategory
	}{
		{"java.lang.String", CategoryJDK},
		{"java/util/HashMap", CategoryJDK},
		{"javax/servlet/Servlet", CategoryJDK},
		{"sun.misc.Unsafe", CategoryJDK},
		{"com/sun/proxy/$Proxy0", CategoryJDK},
		{"jdk/internal/misc/Unsafe", CategoryJDK},
		{"com/example/MyService", CategoryApplication},
		{"javafx/Foo", CategoryApplication},
		{"", CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.className, func(t *testing.T) {
			got := f.Classify(tt.className)
			if got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.className, got, tt.expected)
			}
		})
	}
}

func TestClassFilter_Match(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		className string
		expected  bool
	}{
		{"empty config matches all", Config{}, "java/lang/String", true},
		{"empty name", Config{}, "", false},
		{"skip jdk", Config{SkipJDK: true}, "java/lang/String", false},
		{"skip jdk keeps app", Config{SkipJDK: true}, "com/example/A", true},
		{"include hit", Config{Include: []string{"com/example/"}}, "com/example/A", true},
		{"include miss", Config{Include: []string{"com.example."}}, "org/other/A", false},
		{"exclude wins", Config{Include: []string{"com/example"}, Exclude: []string{"com/example/internal"}}, "com/example/internal/X", false},
		{"blank prefixes ignored", Config{Include: []string{" ", ""}}, "org/A", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewClassFilter(tt.cfg)
			if got := f.Match(tt.className); got != tt.expected {
				t.Errorf("Match(%q) = %v, want %v", tt.className, got, tt.expected)
			}
		})
	}
}

func TestClassFilter_AddJDKPrefix(t *testing.T) {
	f := NewClassFilter(Config{SkipJDK: true})
	if !f.Match("org/graalvm/Foo") {
		t.Fatal("expected match before prefix added")
	}
	f.AddJDKPrefix("org/graalvm/")
	if f.Match("org/graalvm/Foo") {
		t.Error("expected no match after prefix added")
	}
}

func TestClassFilter_Cache(t *testing.T) {
	f := NewClassFilter(Config{})
	f.SetCacheSize(2)

	f.Classify("a/A")
	f.Classify("b/B")
	f.Classify("c/C")

	size, max := f.CacheStats()
	if size != 2 || max != 2 {
		t.Errorf("CacheStats() = %d, %d, want 2, 2", size, max)
	}

	f.SetCacheSize(1)
	if size, _ := f.CacheStats(); size != 0 {
		t.Errorf("cache not cleared on shrink, size %d", size)
	}
}

func TestClassFilter_Concurrent(t *testing.T) {
	f := NewClassFilter(Config{SkipJDK: true})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				f.Match("java/lang/String")
				f.Match("com/example/A")
			}
		}()
	}
	wg.Wait()
}

func TestNormalize(t *testing.T) {
	if got := Normalize("a/b/C$D"); got != "a.b.C$D" {
		t.Errorf("Normalize() = %q", got)
	}
}
