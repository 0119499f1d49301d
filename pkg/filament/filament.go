// Package filament groups a flat particle catalog into filaments: ordered
// chains of particles that share a micrograph and a tube ID, sorted by their
// position along the filament axis.
package filament

import (
	"fmt"

	"mirp/internal/models"
	"mirp/pkg/table"
)

// Filament is the particle rows of one filament, in arc-length order.
// Corrections mutate its columns in place.
type Filament struct {
	*table.Table
}

// New wraps a table of particle rows as a filament
func New(t *table.Table) *Filament {
	return &Filament{Table: t}
}

// Micrograph returns the micrograph the filament was picked from
func (f *Filament) Micrograph() string {
	v, err := f.Get(models.MicrographName, 0)
	if err != nil {
		return ""
	}
	return v.String()
}

// TubeID returns the tube ID of the filament's first particle
func (f *Filament) TubeID() int {
	v, err := f.Get(models.HelicalTubeID, 0)
	if err != nil {
		return 0
	}
	id, _ := v.Int()
	return id
}

// SetTubeID assigns id to every particle of the filament
func (f *Filament) SetTubeID(id int) error {
	return f.Fill(models.HelicalTubeID, table.IntValue(id))
}

// Split cuts the filament at the given row indices
func (f *Filament) Split(indices []int) []*Filament {
	parts := table.SplitAt(f.Table, indices)
	out := make([]*Filament, len(parts))
	for i, p := range parts {
		out[i] = New(p)
	}
	return out
}

// Clone returns a deep copy of the filament
func (f *Filament) Clone() *Filament {
	return New(f.Table.Clone())
}

// Particle returns a typed view of row i. Missing columns are left at zero.
func (f *Filament) Particle(i int) (models.Particle, error) {
	if i < 0 || i >= f.Len() {
		return models.Particle{}, fmt.Errorf("particle %d out of range [0,%d)", i, f.Len())
	}
	p := models.Particle{Micrograph: f.Micrograph()}
	ints := map[string]*int{
		models.HelicalTubeID: &p.TubeID,
		models.ClassNumber:   &p.Class,
	}
	for name, dst := range ints {
		if v, err := f.Get(name, i); err == nil {
			*dst, _ = v.Int()
		}
	}
	floats := map[string]*float64{
		models.HelicalTrackLength: &p.TrackLength,
		models.AngleRot:           &p.Rot,
		models.AngleTilt:          &p.Tilt,
		models.AnglePsi:           &p.Psi,
		models.OriginX:            &p.OriginX,
		models.OriginY:            &p.OriginY,
	}
	for name, dst := range floats {
		if v, err := f.Get(name, i); err == nil {
			*dst, _ = v.Float()
		}
	}
	return p, nil
}

// Particles returns typed views of every row
func (f *Filament) Particles() []models.Particle {
	out := make([]models.Particle, f.Len())
	for i := range out {
		out[i], _ = f.Particle(i)
	}
	return out
}

// Renumber assigns tube IDs in order: consecutive filaments on the same
// micrograph get consecutive IDs, and each new micrograph restarts at 1
func Renumber(filaments []*Filament) error {
	prevMic := ""
	prevID := 0
	for i, f := range filaments {
		mic := f.Micrograph()
		id := 1
		if i > 0 && mic == prevMic {
			id = prevID + 1
		}
		if err := f.SetTubeID(id); err != nil {
			return fmt.Errorf("renumbering filament %d: %w", i, err)
		}
		prevMic, prevID = mic, id
	}
	return nil
}

// TotalParticles returns the number of particles across filaments
func TotalParticles(filaments []*Filament) int {
	n := 0
	for _, f := range filaments {
		n += f.Len()
	}
	return n
}

// GlobalInts concatenates an integer column across filaments
func GlobalInts(filaments []*Filament, name string) ([]int, error) {
	var out []int
	for i, f := range filaments {
		vals, err := f.Ints(name)
		if err != nil {
			return nil, fmt.Errorf("filament %d: %w", i, err)
		}
		out = append(out, vals...)
	}
	return out, nil
}
