// Package pprof records runtime profiles of a single command run.
//
// A Session starts the CPU profile when it begins and takes snapshots of
// the other profiles when it stops:
//
//	s, err := pprof.Start(pprof.Config{Dir: "./pprof", Profiles: types})
//	if err != nil {
//	    return err
//	}
//	defer s.Stop()
package pprof

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"time"
)

// ProfileType names a runtime profile.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns all supported profile types.
func AllProfileTypes() []ProfileType {
	return []ProfileType{
		ProfileCPU,
		ProfileHeap,
		ProfileGoroutine,
		ProfileBlock,
		ProfileMutex,
		ProfileAllocs,
	}
}

// DefaultProfileTypes returns the profiles taken when none are named.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap}
}

// ParseProfileTypes parses a comma-separated list of profile types.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}

	valid := make(map[ProfileType]bool)
	for _, pt := range AllProfileTypes() {
		valid[pt] = true
	}

	parts := strings.Split(s, ",")
	types := make([]ProfileType, 0, len(parts))
	seen := make(map[ProfileType]bool)
	for _, p := range parts {
		pt := ProfileType(strings.TrimSpace(strings.ToLower(p)))
		if !valid[pt] {
			return nil, fmt.Errorf("unknown profile type: %q", p)
		}
		if !seen[pt] {
			seen[pt] = true
			types = append(types, pt)
		}
	}
	return types, nil
}

// Config selects the profiles and where they go.
type Config struct {
	Dir      string
	Profiles []ProfileType
	// BlockRate and MutexFraction are applied for the session when the
	// block or mutex profile is requested. Zero means 1.
	BlockRate     int
	MutexFraction int
}

// Session is a running profile capture.
type Session struct {
	cfg     Config
	prefix  string
	cpuFile *os.File

	mu      sync.Mutex
	stopped bool
	files   []string
}

// Start creates cfg.Dir and starts the CPU profile if it is requested.
func Start(cfg Config) (*Session, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("profile directory is required")
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = DefaultProfileTypes()
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	s := &Session{cfg: cfg, prefix: time.Now().Format("20060102_150405")}
	for _, pt := range cfg.Profiles {
		switch pt {
		case ProfileCPU:
			f, err := os.Create(s.path(pt))
			if err != nil {
				return nil, fmt.Errorf("failed to create cpu profile: %w", err)
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to start cpu profile: %w", err)
			}
			s.cpuFile = f
		case ProfileBlock:
			runtime.SetBlockProfileRate(orOne(cfg.BlockRate))
		case ProfileMutex:
			runtime.SetMutexProfileFraction(orOne(cfg.MutexFraction))
		}
	}
	return s, nil
}

func orOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func (s *Session) path(pt ProfileType) string {
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("%s_%s.pprof", pt, s.prefix))
}

// Stop ends the CPU profile and writes the snapshot profiles. It returns
// the first error but still writes every profile it can. Later calls do
// nothing.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := s.cpuFile.Close(); err != nil {
			keep(fmt.Errorf("failed to close cpu profile: %w", err))
		} else {
			s.files = append(s.files, s.cpuFile.Name())
		}
	}

	for _, pt := range s.cfg.Profiles {
		switch pt {
		case ProfileCPU:
			continue
		case ProfileHeap:
			runtime.GC()
		}
		if err := s.snapshot(pt); err != nil {
			keep(err)
		}
		switch pt {
		case ProfileBlock:
			runtime.SetBlockProfileRate(0)
		case ProfileMutex:
			runtime.SetMutexProfileFraction(0)
		}
	}
	return firstErr
}

func (s *Session) snapshot(pt ProfileType) error {
	p := pprof.Lookup(string(pt))
	if p == nil {
		return fmt.Errorf("%s profile not found", pt)
	}
	f, err := os.Create(s.path(pt))
	if err != nil {
		return fmt.Errorf("failed to create %s profile: %w", pt, err)
	}
	if err := p.WriteTo(f, 0); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s profile: %w", pt, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s profile: %w", pt, err)
	}
	s.files = append(s.files, f.Name())
	return nil
}

// Files returns the profiles written by Stop.
func (s *Session) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.files...)
}

// Dir returns the output directory.
func (s *Session) Dir() string {
	return s.cfg.Dir
}
