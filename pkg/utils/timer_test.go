package utils

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_Phases(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewTimer("A.class", WithClock(clock))

	read := timer.Start("read")
	clock.Advance(3 * time.Millisecond)
	read.Stop()

	compact := timer.Start("compact")
	clock.Advance(5 * time.Millisecond)
	compact.Stop()
	compact.Stop()

	timer.Start("compact")
	clock.Advance(time.Millisecond)
	timer.Start("compact").Stop()

	phases := timer.Phases()
	assert.Len(t, phases, 2)
	assert.Equal(t, "read", phases[0].Name)
	assert.Equal(t, 3*time.Millisecond, timer.Duration("read"))
	assert.Equal(t, 5*time.Millisecond, timer.Duration("compact"))
	assert.Equal(t, 9*time.Millisecond, timer.Total())
	assert.Equal(t, map[string]int64{"read": 3, "compact": 5}, timer.Milliseconds())
}

func TestTimer_TimeFunc(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	timer := NewTimer("x", WithClock(clock))
	boom := errors.New("boom")

	err := timer.TimeFunc("write", func() error {
		clock.Advance(2 * time.Second)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2*time.Second, timer.Duration("write"))
	assert.Zero(t, timer.Duration("missing"))
}

func TestTimer_Summary(t *testing.T) {
	buf := &bytes.Buffer{}
	timer := NewTimer("A.class", WithLogger(NewDefaultLogger(LevelDebug, buf)))
	timer.Start("read").Stop()
	timer.Summary()

	assert.Contains(t, buf.String(), "A.class phase 1 read:")
	assert.Contains(t, buf.String(), "A.class total:")
}
