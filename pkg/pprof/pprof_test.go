package pprof

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseProfileTypes(t *testing.T) {
	tests := []struct {
		input   string
		want    []ProfileType
		wantErr bool
	}{
		{"", DefaultProfileTypes(), false},
		{"cpu", []ProfileType{ProfileCPU}, false},
		{" Heap , allocs,heap", []ProfileType{ProfileHeap, ProfileAllocs}, false},
		{"cpu,threads", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProfileTypes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProfileTypes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseProfileTypes(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseProfileTypes(%q)[%d] = %s, want %s", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSession(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profiles")
	s, err := Start(Config{Dir: dir, Profiles: []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine}})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	sum := 0
	for i := 0; i < 100000; i++ {
		sum += i
	}
	_ = sum

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}

	files := s.Files()
	if len(files) != 3 {
		t.Fatalf("expected 3 profiles, got %v", files)
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			t.Errorf("profile %s: %v", f, err)
			continue
		}
		if !strings.HasPrefix(f, dir) || filepath.Ext(f) != ".pprof" {
			t.Errorf("unexpected profile path %s", f)
		}
		if info.Size() == 0 {
			t.Errorf("profile %s is empty", f)
		}
	}
}

func TestStart_RequiresDir(t *testing.T) {
	if _, err := Start(Config{}); err == nil {
		t.Error("expected an error without a directory")
	}
}
