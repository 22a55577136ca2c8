package glrender

import (
	"errors"
	"fmt"

	"github.com/soypat/glvox"
	"github.com/soypat/glvox/compute"
)

var ErrBadCount = errors.New("glrender: delta count out of range")

// Updater stages delta batches and dispatches the update program against
// the node buffer of an octree.
type Updater struct {
	dev        compute.Device
	oct        *glvox.Octree
	prog       compute.Program
	deltas     compute.Buffer
	capacity   int
	scratch    []uint32
	dispatches int
	staged     int
}

// NewUpdater allocates a delta buffer holding up to capacity records.
func NewUpdater(oct *glvox.Octree, prog compute.Program, capacity int) (*Updater, error) {
	if capacity < 1 {
		return nil, &glvox.InitError{Resource: "delta buffer", Err: fmt.Errorf("capacity %d must be positive", capacity)}
	}
	if prog.LocalSize()[0] < 1 {
		return nil, &glvox.InitError{Resource: "update program", Err: compute.ErrNoComputeStage}
	}
	dev := oct.Device()
	buf, err := dev.NewBuffer(compute.StorageBuffer, glvox.BindingDeltas, capacity*glvox.DeltaWords, nil)
	if err != nil {
		return nil, &glvox.InitError{Resource: "delta buffer", Err: err}
	}
	return &Updater{
		dev:      dev,
		oct:      oct,
		prog:     prog,
		deltas:   buf,
		capacity: capacity,
		scratch:  make([]uint32, 0, capacity*glvox.DeltaWords),
	}, nil
}

// Capacity returns the largest batch accepted.
func (u *Updater) Capacity() int { return u.capacity }

// UpdateVBO stages and applies the first count deltas of deltaData.
func (u *Updater) UpdateVBO(deltaData []glvox.Delta, count int) error {
	return u.StageAndApply(deltaData, count)
}

// StageAndApply uploads deltas[:count] to the start of the delta buffer,
// dispatches one update invocation per delta and issues the barrier making
// the node buffer writes visible to the raytrace pass. Batches larger than
// the delta buffer are rejected whole with glvox.ErrDeltaCapacity. A zero
// count issues no command.
func (u *Updater) StageAndApply(deltas []glvox.Delta, count int) error {
	if count < 0 || count > len(deltas) {
		return fmt.Errorf("%w: %d of %d deltas", ErrBadCount, count, len(deltas))
	}
	if count > u.capacity {
		return fmt.Errorf("%w: %d > %d", glvox.ErrDeltaCapacity, count, u.capacity)
	}
	if count == 0 {
		return nil
	}
	u.scratch = glvox.AppendDeltaWords(u.scratch[:0], deltas[:count])
	if err := u.dev.WriteBuffer(u.deltas, 0, u.scratch); err != nil {
		return err
	}
	if err := u.prog.SetInt("delta_count", int32(count)); err != nil {
		return err
	}
	groups := compute.GroupCount([3]int{count, 1, 1}, u.prog.LocalSize())
	if err := u.dev.Dispatch(u.prog, groups); err != nil {
		return err
	}
	u.dev.Barrier(UpdateBarrier)
	u.dispatches++
	u.staged += count
	logger.Debugf("applied %d deltas in %d groups", count, groups[0])
	return nil
}

// CheckCapacity reads back the active cell counter and logs when the node
// buffer is full, in which case further subdividing edits are dropped.
func (u *Updater) CheckCapacity() (active int, err error) {
	active, err = u.oct.ActiveCells()
	if err != nil {
		return 0, err
	}
	if capacity := u.oct.Params().CellCapacity; active >= capacity {
		logger.Infof("node buffer full (%d cells): subdividing edits are dropped", capacity)
	}
	return active, nil
}

// Staged returns the number of dispatches issued and deltas staged.
func (u *Updater) Staged() (dispatches, deltas int) { return u.dispatches, u.staged }

// Release frees the delta buffer.
func (u *Updater) Release() { u.deltas.Release() }
