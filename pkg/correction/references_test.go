package correction

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mirp/internal/models"
	"mirp/pkg/starfile"
)

func TestSeamReferences(t *testing.T) {
	refs, err := SeamReferences(13, 9.4, 1.35, 40)
	require.NoError(t, err)
	require.Len(t, refs, 13)

	first := refs[0]
	assert.Equal(t, 0, first.SeamPosition)
	assert.Equal(t, 0.0, first.DeltaRot)
	assert.Equal(t, "seamref0.mrc", first.Name)

	// class 8 of 13 sits on the negative side of the semicircle
	r := refs[7]
	assert.Equal(t, -6, r.SeamPosition)
	assert.InDelta(t, -6*(-360.0/13), r.DeltaRot, 1e-9)
	assert.InDelta(t, -6*(-9.4/1.35), r.DeltaZ, 1e-9)
	assert.InDelta(t, 40/1.35, r.DeltaZShift, 1e-9)
	assert.Equal(t, "seamref-6_40shift.mrc", r.ShiftedName)

	seen := map[int]bool{}
	for _, r := range refs {
		assert.False(t, seen[r.SeamPosition], "duplicate seam position %d", r.SeamPosition)
		seen[r.SeamPosition] = true
	}

	// the shifted reference name follows the configured shift
	other, err := SeamReferences(13, 9.4, 1.35, 41.5)
	require.NoError(t, err)
	assert.Equal(t, "seamref0_41.5shift.mrc", other[0].ShiftedName)
	assert.InDelta(t, 41.5/1.35, other[0].DeltaZShift, 1e-9)

	_, err = SeamReferences(0, 9.4, 1.35, 40)
	assert.Error(t, err)
	_, err = SeamReferences(13, 9.4, 0, 40)
	assert.Error(t, err)
}

func TestWriteSeamReferences(t *testing.T) {
	project := t.TempDir()
	refs, err := SeamReferences(14, 9.4, 1.0, 40)
	require.NoError(t, err)

	params := &Params{OutputDir: filepath.Join(project, "refs"), WorkDir: project}
	_, err = WriteSeamReferences(params, refs)
	assert.ErrorIs(t, err, ErrNotPipelineDir)

	params.SkipPipelineCheck = true
	path, err := WriteSeamReferences(params, refs)
	require.NoError(t, err)

	f, err := starfile.Read(path)
	require.NoError(t, err)
	images, err := f.Loop(ReferencesBlock)
	require.NoError(t, err)
	names, err := images.Strings(models.ReferenceImage)
	require.NoError(t, err)
	require.Len(t, names, 28)
	assert.Equal(t, filepath.Join(params.OutputDir, "seamref0.mrc"), names[0])
	assert.Equal(t, filepath.Join(params.OutputDir, "seamref0_40shift.mrc"), names[14])

	transforms, err := f.Loop(TransformsBlock)
	require.NoError(t, err)
	assert.Equal(t, 14, transforms.Len())

	_, err = WriteSeamReferences(params, refs)
	assert.ErrorIs(t, err, ErrOutputExists)
}

func TestRevertImageName(t *testing.T) {
	tests := []struct {
		name    string
		extract string
		want    string
	}{
		{"000001@Extract/job020/seg_averages/mic1.mrcs", "Extract/job011/Micrographs", "000001@Extract/job011/Micrographs/mic1.mrcs"},
		{"000002@External/avg/mic2.mrcs", "Extract/job011/Movies/Micrographs", "000002@External/job011/Movies/Micrographs/mic2.mrcs"},
		{"000003@Extract/job020/mic3.mrcs", "Extract", "000003@Extract/mic3.mrcs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RevertImageName(tt.name, tt.extract), tt.name)
	}
}

func TestRevert(t *testing.T) {
	dir := t.TempDir()
	input := writeCatalog(t, dir)
	out := filepath.Join(dir, "reverted")

	path, err := Revert(input, out, "Extract/job011/Micrographs")
	require.NoError(t, err)

	f, err := starfile.Read(path)
	require.NoError(t, err)
	particles, err := f.Loop(models.ParticlesBlock)
	require.NoError(t, err)
	names, err := particles.Strings(models.ImageName)
	require.NoError(t, err)
	for _, n := range names {
		assert.Contains(t, n, "@Extract/job011/Micrographs/mic_")
	}

	_, err = Revert(input, out, "Extract/job011/Micrographs")
	assert.ErrorIs(t, err, ErrTargetExists)

	_, err = os.Stat(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(err))
	_, err = Revert(filepath.Join(dir, "missing.star"), filepath.Join(dir, "missing"), "Extract/x")
	assert.Error(t, err)
	_, err = os.Stat(filepath.Join(dir, "missing"))
	assert.True(t, os.IsNotExist(err), "nothing is created when the input cannot be read")
}
