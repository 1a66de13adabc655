// Package reachability counts references into a class file's constant pool
// and removes entries nothing refers to.
//
// One Mark pass counts every index in the model, including the outgoing
// indices of entries that are themselves unreferenced. Compact then drops
// the zero-count entries. An entry whose only referrer was dropped is only
// seen as dead by the next Mark, so Run alternates the two until a round
// removes nothing.
package reachability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/pkg/collections"
	"github.com/stripclass/pkg/telemetry"
	"github.com/stripclass/pkg/utils"
)

// ErrInvariant is returned when the model contains an index the engine
// cannot account for. It indicates a bug, not bad input.
var ErrInvariant = errors.New("constant pool invariant violated")

// Options configures Run.
type Options struct {
	Logger utils.Logger
	// Verify runs classfile.Validate after the last round.
	Verify bool
}

// Stats describes one Run.
type Stats struct {
	Rounds int
	// Removed holds the slots removed by each round; the last entry is 0.
	Removed []int
	// Before and After are the pool counts around the run.
	Before int
	After  int
}

// TotalRemoved returns the number of slots removed over all rounds.
func (s *Stats) TotalRemoved() int {
	return s.Before - s.After
}

// Mark resets the pool's reference counts and counts every index in cf.
// Absent optional indices are not counted.
func Mark(cf *classfile.ClassFile) error {
	cf.Pool.ResetRefCounts()
	return cf.WalkRefs(func(r classfile.Ref) error {
		if r.Absent() {
			return nil
		}
		if err := cf.Pool.AddRef(r.Index); err != nil {
			return fmt.Errorf("%s: %w: %w", r.Where, ErrInvariant, err)
		}
		return nil
	})
}

// Compact removes every slot with a zero count from the last Mark and
// renumbers all indices, bytecode operands included. The order of kept
// entries is unchanged. It returns the number of slots removed.
func Compact(cf *classfile.ClassFile) (int, error) {
	pool := cf.Pool
	if !pool.RefCountsValid() {
		return 0, fmt.Errorf("compact without a current mark: %w", ErrInvariant)
	}

	live := collections.NewBitset(pool.Count())
	for i := 1; i < pool.Count(); i++ {
		if n, _ := pool.RefCount(i); n > 0 {
			live.Set(i)
		}
	}

	remap, removed := pool.Retain(live.Test)
	if removed == 0 {
		return 0, nil
	}

	err := cf.WalkRefs(func(r classfile.Ref) error {
		if r.Absent() {
			return nil
		}
		if int(r.Index) >= len(remap) || remap[r.Index] == 0 {
			return fmt.Errorf("%s: index %d was not kept: %w", r.Where, r.Index, ErrInvariant)
		}
		return r.Set(remap[r.Index])
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Run repeats Mark and Compact until a round removes nothing. On return
// the reference counts are valid for the final pool.
func Run(ctx context.Context, cf *classfile.ClassFile, opts *Options) (*Stats, error) {
	if opts == nil {
		opts = &Options{}
	}
	log := utils.OrNull(opts.Logger)

	ctx, span := telemetry.StartSpan(ctx, "reachability.Run")
	stats := &Stats{Before: cf.Pool.Count()}
	err := run(ctx, cf, log, stats)
	if err == nil && opts.Verify {
		if verr := classfile.Validate(cf); verr != nil {
			err = fmt.Errorf("after compaction: %w: %w", ErrInvariant, verr)
		}
	}
	stats.After = cf.Pool.Count()
	span.SetAttributes(
		attribute.Int("rounds", stats.Rounds),
		attribute.Int("pool.before", stats.Before),
		attribute.Int("pool.after", stats.After),
	)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	log.Debug("constant pool %d -> %d slots in %d rounds", stats.Before, stats.After, stats.Rounds)
	return stats, nil
}

func run(ctx context.Context, cf *classfile.ClassFile, log utils.Logger, stats *Stats) error {
	for {
		stats.Rounds++
		_, span := telemetry.StartSpan(ctx, "reachability.round", attribute.Int("round", stats.Rounds))

		err := Mark(cf)
		removed := 0
		if err == nil {
			removed, err = Compact(cf)
		}
		span.SetAttributes(attribute.Int("removed", removed))
		telemetry.EndSpan(span, err)
		if err != nil {
			return fmt.Errorf("round %d: %w", stats.Rounds, err)
		}

		stats.Removed = append(stats.Removed, removed)
		log.Debug("round %d removed %d slots", stats.Rounds, removed)
		if removed == 0 {
			return nil
		}
	}
}
