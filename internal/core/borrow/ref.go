package borrow

// Ref is a live borrow of a value guarded by a Cell. Release must be called
// exactly once when the borrow ends; further calls are no-ops.
type Ref[T any] struct {
	value     T
	cell      *Cell
	subject   string
	exclusive bool
	released  bool
}

// Shared takes a shared borrow of value through cell.
func Shared[T any](cell *Cell, value T, subject string) (*Ref[T], error) {
	if err := cell.AcquireShared(subject); err != nil {
		return nil, err
	}
	return &Ref[T]{value: value, cell: cell, subject: subject}, nil
}

// Exclusive takes the exclusive borrow of value through cell.
func Exclusive[T any](cell *Cell, value T, subject string) (*Ref[T], error) {
	if err := cell.AcquireExclusive(subject); err != nil {
		return nil, err
	}
	return &Ref[T]{value: value, cell: cell, subject: subject, exclusive: true}, nil
}

// Value returns the borrowed value. Mutating it through a shared Ref is a
// caller bug the cell cannot detect.
func (r *Ref[T]) Value() T {
	return r.value
}

// Exclusive reports whether this is the exclusive borrow.
func (r *Ref[T]) Exclusive() bool {
	return r.exclusive
}

// Released reports whether Release has been called.
func (r *Ref[T]) Released() bool {
	return r.released
}

// Release ends the borrow.
func (r *Ref[T]) Release() error {
	if r == nil || r.released {
		return nil
	}
	r.released = true
	if r.exclusive {
		return r.cell.ReleaseExclusive(r.subject)
	}
	return r.cell.ReleaseShared(r.subject)
}
