package starfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"mirp/pkg/table"
)

// Read loads a catalog from path
func Read(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// builder accumulates one datablock while parsing
type builder struct {
	name   string
	loop   bool
	labels []string
	cols   [][]table.Value
	pairs  []Pair
}

func (b *builder) finish() (*Datablock, error) {
	if !b.loop {
		return &Datablock{Name: b.name, Pairs: b.pairs}, nil
	}
	t, err := table.New(b.labels, b.cols)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, b.name, err)
	}
	return &Datablock{Name: b.name, Loop: t}, nil
}

// Parse reads catalog text. Blank lines and lines starting with '#' are ignored.
func Parse(r io.Reader) (*File, error) {
	f := New()
	var cur *builder
	flush := func() error {
		if cur == nil {
			return nil
		}
		b, err := cur.finish()
		if err != nil {
			return err
		}
		f.put(b)
		return nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}

		switch {
		case strings.HasPrefix(fields[0], "data_"):
			if err := flush(); err != nil {
				return nil, err
			}
			cur = &builder{name: fields[0]}

		case cur == nil:
			return nil, fmt.Errorf("%w: line %d: content before first datablock", ErrMalformed, lineNo)

		case fields[0] == "loop_":
			cur.loop = true

		case strings.HasPrefix(fields[0], "_"):
			label := fields[0][1:]
			if cur.loop {
				if len(cur.cols) > 0 && len(cur.cols[0]) > 0 {
					return nil, fmt.Errorf("%w: line %d: label %s after loop rows", ErrMalformed, lineNo, label)
				}
				cur.labels = append(cur.labels, label)
				cur.cols = append(cur.cols, nil)
				continue
			}
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: line %d: label %s has no value", ErrMalformed, lineNo, label)
			}
			cur.pairs = append(cur.pairs, Pair{Key: label, Value: table.ParseValue(fields[1])})

		case cur.loop:
			if len(fields) != len(cur.labels) {
				return nil, fmt.Errorf("%w: line %d: %d values for %d labels in %s",
					ErrMalformed, lineNo, len(fields), len(cur.labels), cur.name)
			}
			for i, tok := range fields {
				cur.cols[i] = append(cur.cols[i], table.ParseValue(tok))
			}

		default:
			return nil, fmt.Errorf("%w: line %d: cannot interpret %q", ErrMalformed, lineNo, sc.Text())
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return f, nil
}

// Write saves the catalog to path, replacing any existing file
func (f *File) Write(path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating catalog: %w", err)
	}
	w := bufio.NewWriter(fh)
	if err := f.Encode(w); err != nil {
		fh.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		fh.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return fh.Close()
}

// Encode writes the catalog text to w
func (f *File) Encode(w io.Writer) error {
	for _, b := range f.blocks {
		if _, err := fmt.Fprintf(w, "\n%s\n\n", b.Name); err != nil {
			return err
		}
		if b.IsLoop() {
			if err := encodeLoop(w, b.Loop); err != nil {
				return err
			}
			continue
		}
		for _, p := range b.Pairs {
			if _, err := fmt.Fprintf(w, "_%s\t%s\n", p.Key, p.Value.String()); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeLoop(w io.Writer, t *table.Table) error {
	if _, err := io.WriteString(w, "loop_\n"); err != nil {
		return err
	}
	names := t.Columns()
	for i, name := range names {
		if _, err := fmt.Fprintf(w, "_%s\t#%d\n", name, i+1); err != nil {
			return err
		}
	}
	cols := make([][]table.Value, len(names))
	for i, name := range names {
		cols[i], _ = t.Column(name)
	}
	var sb strings.Builder
	for row := 0; row < t.Len(); row++ {
		sb.Reset()
		for i := range cols {
			if i > 0 {
				sb.WriteByte('\t')
			}
			sb.WriteString(cols[i][row].String())
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
