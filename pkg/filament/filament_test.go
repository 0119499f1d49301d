package filament

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirp/internal/models"
	"mirp/pkg/starfile"
	"mirp/pkg/table"
)

// buildCatalog creates a catalog with particles deliberately out of order
func buildCatalog(t *testing.T) *starfile.File {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("data_optics\nloop_\n_rlnOpticsGroup #1\n_rlnImagePixelSize #2\n1 1.35\n\n")
	sb.WriteString("data_particles\nloop_\n")
	for i, c := range []string{"rlnMicrographName", "rlnHelicalTubeID", "rlnHelicalTrackLengthAngst", "rlnClassNumber", "rlnAngleRot"} {
		fmt.Fprintf(&sb, "_%s #%d\n", c, i+1)
	}
	rows := []string{
		"mic_b.mrc 1 82.0 2 5.0",
		"mic_a.mrc 2 0.0 1 6.0",
		"mic_a.mrc 1 164.0 3 3.0",
		"mic_a.mrc 1 0.0 3 1.0",
		"mic_a.mrc 1 82.0 3 2.0",
		"mic_b.mrc 1 0.0 2 4.0",
	}
	sb.WriteString(strings.Join(rows, "\n"))
	sb.WriteString("\n")

	f, err := starfile.Parse(strings.NewReader(sb.String()))
	require.NoError(t, err)
	return f
}

func TestFromCatalogGroupsAndSorts(t *testing.T) {
	c, err := FromCatalog(buildCatalog(t))
	require.NoError(t, err)

	assert.Equal(t, 1.35, c.PixelSize())
	require.Equal(t, 3, c.Len())
	assert.Equal(t, 6, c.ParticleCount())

	first := c.Filament(0)
	assert.Equal(t, "mic_a.mrc", first.Micrograph())
	assert.Equal(t, 1, first.TubeID())
	rot, err := first.Floats(models.AngleRot)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, rot)

	assert.Equal(t, 2, c.Filament(1).TubeID())
	assert.Equal(t, "mic_b.mrc", c.Filament(2).Micrograph())
}

func TestFromCatalogRequiresPixelSize(t *testing.T) {
	f := starfile.New()
	f.SetLoop(models.ParticlesBlock, table.Empty(models.MicrographName))
	_, err := FromCatalog(f)
	assert.ErrorIs(t, err, starfile.ErrNoDatablock)
}

// TestFlattenRegroupRoundTrip verifies that flattening and regrouping an
// uncorrected collection reproduces the same filaments particle for particle
func TestFlattenRegroupRoundTrip(t *testing.T) {
	c, err := FromCatalog(buildCatalog(t))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "roundtrip_data.star")
	require.NoError(t, c.Save(path))

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, c.Len(), again.Len())
	assert.Equal(t, path, again.Source())

	for i := range c.Filaments() {
		a, b := c.Filament(i), again.Filament(i)
		require.Equal(t, a.Len(), b.Len())
		assert.Equal(t, a.Columns(), b.Columns())
		for row := 0; row < a.Len(); row++ {
			for col, v := range a.Row(row) {
				if !table.Equal(v, b.Row(row)[col]) {
					t.Errorf("filament %d row %d column %d: %v != %v", i, row, col, v, b.Row(row)[col])
				}
			}
		}
	}
}

func TestRenumber(t *testing.T) {
	c, err := FromCatalog(buildCatalog(t))
	require.NoError(t, err)

	// split the first filament and renumber everything
	parts := c.Filament(0).Split([]int{1})
	require.Len(t, parts, 2)
	working := append(parts, c.Filaments()[1:]...)
	require.NoError(t, Renumber(working))

	var ids []int
	for _, f := range working {
		ids = append(ids, f.TubeID())
	}
	assert.Equal(t, []int{1, 2, 3, 1}, ids)

	tubes, err := working[1].Ints(models.HelicalTubeID)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, tubes)
}

func TestParticleView(t *testing.T) {
	c, err := FromCatalog(buildCatalog(t))
	require.NoError(t, err)

	p, err := c.Filament(0).Particle(2)
	require.NoError(t, err)
	assert.Equal(t, "mic_a.mrc", p.Micrograph)
	assert.Equal(t, 3, p.Class)
	assert.Equal(t, 164.0, p.TrackLength)
	assert.Equal(t, 3.0, p.Rot)
	assert.Zero(t, p.OriginX, "missing columns stay zero")

	_, err = c.Filament(0).Particle(3)
	assert.Error(t, err)

	assert.Len(t, c.Filament(2).Particles(), 2)
}

func TestFlattenEmptyKeepsColumns(t *testing.T) {
	c, err := FromCatalog(buildCatalog(t))
	require.NoError(t, err)
	c.Replace(nil)

	particles, err := c.Particles()
	require.NoError(t, err)
	assert.Equal(t, 0, particles.Len())
	assert.Contains(t, particles.Columns(), models.ClassNumber)
}

func TestGlobalInts(t *testing.T) {
	c, err := FromCatalog(buildCatalog(t))
	require.NoError(t, err)

	classes, err := GlobalInts(c.Filaments(), models.ClassNumber)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 3, 1, 2, 2}, classes)
	assert.Equal(t, 6, TotalParticles(c.Filaments()))
}

func TestDropColumn(t *testing.T) {
	c, err := FromCatalog(buildCatalog(t))
	require.NoError(t, err)

	c.DropColumn(models.AngleRot)
	for _, f := range c.Filaments() {
		assert.False(t, f.Has(models.AngleRot))
	}
	c.Replace(nil)
	particles, err := c.Particles()
	require.NoError(t, err)
	assert.NotContains(t, particles.Columns(), models.AngleRot)
	assert.Contains(t, particles.Columns(), models.ClassNumber)
}
