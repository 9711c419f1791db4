// Package borrow implements runtime-checked shared/exclusive access to values
// owned by a holder and reachable through non-owning addresses.
//
// A Cell is the counter every holder owns:
//
//	 0   unborrowed
//	 n>0 n shared borrows outstanding
//	-1   one exclusive borrow outstanding
//
// Cells are not safe for concurrent use; the object graph they guard is
// single-owner and single-threaded.
package borrow

import "fmt"

const exclusive int64 = -1

// Cell is the borrow counter of a single holder.
type Cell struct {
	count int64
	dead  bool
}

// NewCell returns a live, unborrowed cell.
func NewCell() *Cell {
	return &Cell{}
}

// Alive reports whether the owning holder still exists.
func (c *Cell) Alive() bool {
	return c != nil && !c.dead
}

// Count returns the raw counter value.
func (c *Cell) Count() int64 {
	if c == nil {
		return 0
	}
	return c.count
}

// AcquireShared registers a shared borrow.
func (c *Cell) AcquireShared(subject string) error {
	if !c.Alive() {
		return ErrAbsent
	}
	if c.count < 0 {
		return &Error{Op: "acquire shared", Kind: KindBorrowConflict, Subject: subject, Detail: "already borrowed exclusively"}
	}
	c.count++
	return nil
}

// AcquireExclusive registers the exclusive borrow.
func (c *Cell) AcquireExclusive(subject string) error {
	if !c.Alive() {
		return ErrAbsent
	}
	switch {
	case c.count < 0:
		return &Error{Op: "acquire exclusive", Kind: KindBorrowConflict, Subject: subject, Detail: "already borrowed exclusively"}
	case c.count > 0:
		return &Error{Op: "acquire exclusive", Kind: KindBorrowConflict, Subject: subject, Detail: fmt.Sprintf("%d shared borrows outstanding", c.count)}
	}
	c.count = exclusive
	return nil
}

// ReleaseShared drops a shared borrow.
func (c *Cell) ReleaseShared(subject string) error {
	if !c.Alive() {
		return &Error{Op: "release shared", Kind: KindUseAfterFree, Subject: subject, Detail: "holder already destroyed"}
	}
	if c.count <= 0 {
		return &Error{Op: "release shared", Kind: KindCorrupted, Subject: subject, Detail: fmt.Sprintf("counter is %d", c.count)}
	}
	c.count--
	return nil
}

// ReleaseExclusive drops the exclusive borrow.
func (c *Cell) ReleaseExclusive(subject string) error {
	if !c.Alive() {
		return &Error{Op: "release exclusive", Kind: KindUseAfterFree, Subject: subject, Detail: "holder already destroyed"}
	}
	if c.count != exclusive {
		return &Error{Op: "release exclusive", Kind: KindCorrupted, Subject: subject, Detail: fmt.Sprintf("counter is %d", c.count)}
	}
	c.count = 0
	return nil
}

// Kill marks the cell dead. Every address pointing at it becomes invalid.
// The cell is killed even when borrows are outstanding; that case is reported
// as KindHeldOnDestroy. Killing a dead cell is a no-op.
func (c *Cell) Kill(subject string) error {
	if !c.Alive() {
		return nil
	}
	c.dead = true
	if c.count != 0 {
		return &Error{Op: "destroy", Kind: KindHeldOnDestroy, Subject: subject, Detail: fmt.Sprintf("counter is %d", c.count)}
	}
	return nil
}
