package storage

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sort"
	"sync"

	"lukechampine.com/blake3"
)

type batchWriter interface {
	WriteBatch(puts map[string][]byte, deletes []string) error
}

// Journal buffers writes on top of a backing Database until Commit is called.
// Discard drops every buffered write, leaving the backend untouched. Reads see
// buffered writes first.
type Journal struct {
	mu      sync.RWMutex
	backend Database
	writes  map[string][]byte
	deletes map[string]struct{}
}

// NewJournal wraps the provided backend.
func NewJournal(backend Database) *Journal {
	return &Journal{
		backend: backend,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

func (j *Journal) Put(key []byte, value []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	k := string(key)
	delete(j.deletes, k)
	j.writes[k] = append([]byte(nil), value...)
	return nil
}

func (j *Journal) Get(key []byte) ([]byte, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	k := string(key)
	if _, gone := j.deletes[k]; gone {
		return nil, ErrNotFound
	}
	if v, ok := j.writes[k]; ok {
		return append([]byte(nil), v...), nil
	}
	return j.backend.Get(key)
}

func (j *Journal) Delete(key []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	k := string(key)
	delete(j.writes, k)
	j.deletes[k] = struct{}{}
	return nil
}

func (j *Journal) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	j.mu.RLock()
	merged := make(map[string][]byte)
	err := j.backend.Iterate(prefix, func(key, value []byte) error {
		merged[string(key)] = value
		return nil
	})
	if err != nil {
		j.mu.RUnlock()
		return err
	}
	for k, v := range j.writes {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = append([]byte(nil), v...)
		}
	}
	for k := range j.deletes {
		delete(merged, k)
	}
	j.mu.RUnlock()

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := fn([]byte(k), merged[k]); err != nil {
			return err
		}
	}
	return nil
}

// Dirty reports whether the journal holds uncommitted writes.
func (j *Journal) Dirty() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.writes) > 0 || len(j.deletes) > 0
}

// Commit flushes buffered writes to the backend. Backends that support
// batches receive a single atomic batch.
func (j *Journal) Commit() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	deletes := make([]string, 0, len(j.deletes))
	for k := range j.deletes {
		deletes = append(deletes, k)
	}
	if bw, ok := j.backend.(batchWriter); ok {
		if err := bw.WriteBatch(j.writes, deletes); err != nil {
			return err
		}
	} else {
		for k, v := range j.writes {
			if err := j.backend.Put([]byte(k), v); err != nil {
				return err
			}
		}
		for _, k := range deletes {
			if err := j.backend.Delete([]byte(k)); err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
		}
	}
	j.writes = make(map[string][]byte)
	j.deletes = make(map[string]struct{})
	return nil
}

// Discard drops every buffered write.
func (j *Journal) Discard() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.writes = make(map[string][]byte)
	j.deletes = make(map[string]struct{})
}

// Digest hashes every visible key/value pair under prefix with BLAKE3 in key
// order. Two journals holding the same logical contents produce the same
// digest regardless of which writes are still buffered.
func (j *Journal) Digest(prefix []byte) ([32]byte, error) {
	h := blake3.New(32, nil)
	var lenBuf [8]byte
	err := j.Iterate(prefix, func(key, value []byte) error {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(key)))
		h.Write(lenBuf[:])
		h.Write(key)
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(value)))
		h.Write(lenBuf[:])
		h.Write(value)
		return nil
	})
	var out [32]byte
	if err != nil {
		return out, err
	}
	copy(out[:], h.Sum(nil))
	return out, nil
}

// Close closes the backend.
func (j *Journal) Close() {
	j.backend.Close()
}
