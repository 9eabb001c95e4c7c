package fbtft

import (
	"errors"
	"fmt"
)

type guard struct {
	stage   Stage
	release func() error
}

// rollback is a stack of acquired resources, released in reverse order.
type rollback struct {
	guards []guard
	logf   Logf
}

func (r *rollback) push(stage Stage, release func() error) {
	r.guards = append(r.guards, guard{stage: stage, release: release})
}

// unwind releases everything pushed so far, newest first, and empties the
// stack. All releases run; their errors are joined.
func (r *rollback) unwind() error {
	var errs []error
	for i := len(r.guards) - 1; i >= 0; i-- {
		g := r.guards[i]
		if err := g.release(); err != nil {
			if r.logf != nil {
				r.logf("fbtft: release %s: %v", g.stage, err)
			}
			errs = append(errs, fmt.Errorf("release %s: %w", g.stage, err))
		}
	}
	r.guards = nil
	return errors.Join(errs...)
}
