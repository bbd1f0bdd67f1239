package storage

import (
	"errors"
	"sort"
)

var errOverlayClosed = errors.New("storage: overlay already committed or discarded")

// Overlay buffers writes on top of a parent database. Reads fall through to
// the parent for keys the overlay has not touched. Nothing reaches the parent
// until Commit, which hands every pending write over in one batch.
//
// Overlay is not safe for concurrent use.
type Overlay struct {
	parent  Database
	pending map[string]batchOp
	closed  bool
}

// NewOverlay opens a write buffer over parent.
func NewOverlay(parent Database) *Overlay {
	return &Overlay{parent: parent, pending: make(map[string]batchOp)}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	if o.closed {
		return errOverlayClosed
	}
	o.pending[string(key)] = batchOp{key: cloneBytes(key), value: cloneBytes(value)}
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if op, ok := o.pending[string(key)]; ok {
		if op.delete {
			return nil, ErrNotFound
		}
		return cloneBytes(op.value), nil
	}
	return o.parent.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	if op, ok := o.pending[string(key)]; ok {
		return !op.delete, nil
	}
	return o.parent.Has(key)
}

func (o *Overlay) Delete(key []byte) error {
	if o.closed {
		return errOverlayClosed
	}
	o.pending[string(key)] = batchOp{key: cloneBytes(key), delete: true}
	return nil
}

// Write folds the batch into the overlay's pending set.
func (o *Overlay) Write(batch *Batch) error {
	if o.closed {
		return errOverlayClosed
	}
	if batch == nil {
		return nil
	}
	for _, op := range batch.ops {
		o.pending[string(op.key)] = op
	}
	return nil
}

// Dirty reports the number of keys touched since the overlay was opened.
func (o *Overlay) Dirty() int { return len(o.pending) }

// Commit flushes all pending writes to the parent as a single batch.
func (o *Overlay) Commit() error {
	if o.closed {
		return errOverlayClosed
	}
	keys := make([]string, 0, len(o.pending))
	for k := range o.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := NewBatch()
	for _, k := range keys {
		batch.ops = append(batch.ops, o.pending[k])
	}
	if err := o.parent.Write(batch); err != nil {
		return err
	}
	o.closed = true
	o.pending = nil
	return nil
}

// Discard drops every pending write.
func (o *Overlay) Discard() {
	o.closed = true
	o.pending = nil
}

// Close discards pending writes; the parent stays open.
func (o *Overlay) Close() { o.Discard() }
