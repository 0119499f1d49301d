package filament

import (
	"fmt"

	"mirp/internal/models"
	"mirp/pkg/starfile"
	"mirp/pkg/table"
)

// Collection owns the filaments parsed from one catalog. The catalog's other
// datablocks (optics groups and so on) are kept so the collection can be
// written back as a complete catalog.
type Collection struct {
	catalog   *starfile.File
	columns   []string
	filaments []*Filament
	pixelSize float64
}

// Load reads a catalog from path and groups its particles into filaments
func Load(path string) (*Collection, error) {
	f, err := starfile.Read(path)
	if err != nil {
		return nil, err
	}
	return FromCatalog(f)
}

// FromCatalog sorts the particle datablock by micrograph, tube ID and track
// length, then groups adjacent rows with the same micrograph and tube ID into
// filaments. The pixel size is read from the optics datablock.
func FromCatalog(f *starfile.File) (*Collection, error) {
	apix, err := f.Entry(models.OpticsBlock, models.ImagePixelSize)
	if err != nil {
		return nil, fmt.Errorf("reading pixel size: %w", err)
	}
	pixelSize, ok := apix.Float()
	if !ok {
		return nil, fmt.Errorf("pixel size %q is not a number", apix.String())
	}

	catalog := f.Clone()
	if err := catalog.SortLoop(models.ParticlesBlock, models.FilamentOrder...); err != nil {
		return nil, err
	}
	particles, err := catalog.Loop(models.ParticlesBlock)
	if err != nil {
		return nil, err
	}
	groups, err := table.GroupBy(particles, models.FilamentKey...)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		catalog:   catalog,
		columns:   particles.Columns(),
		filaments: make([]*Filament, len(groups)),
		pixelSize: pixelSize,
	}
	for i, g := range groups {
		c.filaments[i] = New(g)
	}
	return c, nil
}

// Source returns the path the collection was loaded from
func (c *Collection) Source() string { return c.catalog.Path }

// PixelSize returns the pixel size in angstrom per pixel
func (c *Collection) PixelSize() float64 { return c.pixelSize }

// Len returns the number of filaments
func (c *Collection) Len() int { return len(c.filaments) }

// Filaments returns the working set. The slice is shared with the collection.
func (c *Collection) Filaments() []*Filament { return c.filaments }

// Filament returns the i-th filament
func (c *Collection) Filament(i int) *Filament { return c.filaments[i] }

// Replace swaps the working set for the output of a correction pass
func (c *Collection) Replace(filaments []*Filament) { c.filaments = filaments }

// DropColumn removes a column from every filament and from the catalog layout
func (c *Collection) DropColumn(name string) {
	for _, f := range c.filaments {
		f.Drop(name)
	}
	kept := c.columns[:0]
	for _, col := range c.columns {
		if col != name {
			kept = append(kept, col)
		}
	}
	c.columns = kept
}

// ParticleCount returns the number of particles across all filaments
func (c *Collection) ParticleCount() int { return TotalParticles(c.filaments) }

// Particles flattens the working set back into a single particle table
func (c *Collection) Particles() (*table.Table, error) {
	return Flatten(c.filaments, c.columns)
}

// Flatten concatenates filaments into one particle table. The column layout
// follows the first filament, or columns when there are no filaments.
func Flatten(filaments []*Filament, columns []string) (*table.Table, error) {
	if len(filaments) == 0 {
		return table.Empty(columns...), nil
	}
	tables := make([]*table.Table, len(filaments))
	for i, f := range filaments {
		tables[i] = f.Table
	}
	out, err := table.Concat(tables...)
	if err != nil {
		return nil, fmt.Errorf("flattening filaments: %w", err)
	}
	return out, nil
}

// Catalog returns a copy of the source catalog with its particle datablock
// replaced by the flattened working set
func (c *Collection) Catalog() (*starfile.File, error) {
	particles, err := c.Particles()
	if err != nil {
		return nil, err
	}
	return c.CatalogWith(particles), nil
}

// CatalogWith returns a copy of the source catalog with particles as its
// particle datablock
func (c *Collection) CatalogWith(particles *table.Table) *starfile.File {
	out := c.catalog.Clone()
	out.SetLoop(models.ParticlesBlock, particles)
	return out
}

// Save writes the working set to path as a complete catalog
func (c *Collection) Save(path string) error {
	out, err := c.Catalog()
	if err != nil {
		return err
	}
	return out.Write(path)
}
