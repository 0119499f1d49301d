// Package starfile reads and writes STAR catalogs: an ordered list of named
// datablocks, each either a loop table (one row per record) or a flat list of
// key/value pairs.
package starfile

import (
	"errors"
	"fmt"

	"mirp/pkg/table"
)

var (
	// ErrNoDatablock is returned when a named datablock does not exist
	ErrNoDatablock = errors.New("starfile: no such datablock")

	// ErrMalformed is returned when the text cannot be parsed into datablocks
	ErrMalformed = errors.New("starfile: malformed input")

	// ErrWrongKind is returned when a loop datablock is accessed as pairs or vice versa
	ErrWrongKind = errors.New("starfile: wrong datablock kind")
)

// Pair is one key/value entry of a non-loop datablock
type Pair struct {
	Key   string
	Value table.Value
}

// Datablock is a named block of a catalog. Exactly one of Loop and Pairs is used.
type Datablock struct {
	Name  string
	Loop  *table.Table
	Pairs []Pair
}

// IsLoop reports whether the datablock is a loop table
func (d *Datablock) IsLoop() bool { return d.Loop != nil }

// Lookup returns the value stored under key in a pairs datablock
func (d *Datablock) Lookup(key string) (table.Value, bool) {
	for _, p := range d.Pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return table.Value{}, false
}

// File is an in-memory catalog
type File struct {
	// Path is where the catalog was read from, if anywhere
	Path   string
	blocks []*Datablock
}

// New creates an empty catalog
func New() *File { return &File{} }

// Names returns the datablock names in file order
func (f *File) Names() []string {
	names := make([]string, len(f.blocks))
	for i, b := range f.blocks {
		names[i] = b.Name
	}
	return names
}

// Get returns the named datablock
func (f *File) Get(name string) (*Datablock, error) {
	for _, b := range f.blocks {
		if b.Name == name {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDatablock, name)
}

// Loop returns the table of the named loop datablock
func (f *File) Loop(name string) (*table.Table, error) {
	b, err := f.Get(name)
	if err != nil {
		return nil, err
	}
	if !b.IsLoop() {
		return nil, fmt.Errorf("%w: %s is not a loop", ErrWrongKind, name)
	}
	return b.Loop, nil
}

// Pairs returns the entries of the named key/value datablock
func (f *File) Pairs(name string) ([]Pair, error) {
	b, err := f.Get(name)
	if err != nil {
		return nil, err
	}
	if b.IsLoop() {
		return nil, fmt.Errorf("%w: %s is a loop", ErrWrongKind, name)
	}
	return b.Pairs, nil
}

// Entry returns a single value: the first row of a loop column, or the value
// of a key in a pairs datablock
func (f *File) Entry(block, label string) (table.Value, error) {
	b, err := f.Get(block)
	if err != nil {
		return table.Value{}, err
	}
	if b.IsLoop() {
		v, err := b.Loop.Get(label, 0)
		if err != nil {
			return table.Value{}, fmt.Errorf("%s: %w", block, err)
		}
		return v, nil
	}
	v, ok := b.Lookup(label)
	if !ok {
		return table.Value{}, fmt.Errorf("%w: %s in %s", table.ErrNoColumn, label, block)
	}
	return v, nil
}

// put replaces a datablock of the same name in place, or appends it
func (f *File) put(b *Datablock) {
	for i, existing := range f.blocks {
		if existing.Name == b.Name {
			f.blocks[i] = b
			return
		}
	}
	f.blocks = append(f.blocks, b)
}

// SetLoop replaces (or adds) a loop datablock
func (f *File) SetLoop(name string, t *table.Table) {
	f.put(&Datablock{Name: name, Loop: t})
}

// SetPairs replaces (or adds) a key/value datablock
func (f *File) SetPairs(name string, pairs []Pair) {
	f.put(&Datablock{Name: name, Pairs: pairs})
}

// SortLoop stably sorts the named loop datablock by a composite key
func (f *File) SortLoop(name string, keys ...string) error {
	t, err := f.Loop(name)
	if err != nil {
		return err
	}
	sorted, err := table.SortBy(t, keys...)
	if err != nil {
		return fmt.Errorf("sorting %s: %w", name, err)
	}
	f.SetLoop(name, sorted)
	return nil
}

// Clone returns a copy of the catalog whose loop tables can be modified
// without affecting f
func (f *File) Clone() *File {
	out := &File{Path: f.Path}
	for _, b := range f.blocks {
		nb := &Datablock{Name: b.Name}
		if b.IsLoop() {
			nb.Loop = b.Loop.Clone()
		} else {
			nb.Pairs = append([]Pair(nil), b.Pairs...)
		}
		out.blocks = append(out.blocks, nb)
	}
	return out
}
