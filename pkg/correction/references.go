package correction

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mirp/internal/models"
	"mirp/pkg/register"
	"mirp/pkg/starfile"
	"mirp/pkg/table"
)

// ErrTargetExists is returned when a file would be overwritten
var ErrTargetExists = errors.New("target file already exists")

// Seam reference datablocks
const (
	ReferencesBlock = "data_references"
	TransformsBlock = "data_transforms"
)

const (
	seamPositionLabel = "mirpSeamPosition"
	deltaRotLabel     = "mirpDeltaRot"
	deltaZLabel       = "mirpDeltaZPixel"
	deltaZShiftLabel  = "mirpDeltaZShiftPixel"
)

// SeamReference describes how to derive the reference volume for one seam
// position from a single template volume
type SeamReference struct {
	Class        int
	SeamPosition int

	// DeltaRot is the rotation about the filament axis in degrees
	DeltaRot float64

	// DeltaZ is the translation along the filament axis in pixels
	DeltaZ float64

	// DeltaZShift is the extra translation, in pixels, of the tubulin
	// register variant
	DeltaZShift float64

	Name        string
	ShiftedName string
}

// SeamReferences lists the reference transforms for every seam class of a
// microtubule with the given protofilament number. rise and shift are in
// angstrom, pixelSize in angstrom per pixel.
func SeamReferences(protofilaments int, rise, pixelSize, shift float64) ([]SeamReference, error) {
	if protofilaments < 1 {
		return nil, fmt.Errorf("protofilament number must be positive, got %d", protofilaments)
	}
	if pixelSize <= 0 {
		return nil, fmt.Errorf("pixel size must be positive, got %f", pixelSize)
	}
	twist := -360.0 / float64(protofilaments)
	refs := make([]SeamReference, protofilaments)
	for class := 1; class <= protofilaments; class++ {
		pos, err := register.SeamPosition(class, protofilaments)
		if err != nil {
			return nil, err
		}
		refs[class-1] = SeamReference{
			Class:        class,
			SeamPosition: pos,
			DeltaRot:     float64(pos) * twist,
			DeltaZ:       float64(pos) * -rise / pixelSize,
			DeltaZShift:  shift / pixelSize,
			Name:         fmt.Sprintf("seamref%d.mrc", pos),
			ShiftedName:  fmt.Sprintf("seamref%d_%gshift.mrc", pos, shift),
		}
	}
	return refs, nil
}

// SeamReferenceCatalog builds the reference catalog: a data_references loop
// with every plain reference followed by every shifted one, prefixed by dir,
// and a data_transforms loop with the transform of each seam class
func SeamReferenceCatalog(refs []SeamReference, dir string) (*starfile.File, error) {
	names := make([]string, 0, 2*len(refs))
	for _, r := range refs {
		names = append(names, filepath.Join(dir, r.Name))
	}
	for _, r := range refs {
		names = append(names, filepath.Join(dir, r.ShiftedName))
	}
	images := table.Empty()
	if err := images.SetStrings(models.ReferenceImage, names); err != nil {
		return nil, err
	}

	n := len(refs)
	pos := make([]int, n)
	rot, z, zShift := make([]float64, n), make([]float64, n), make([]float64, n)
	plain := make([]string, n)
	for i, r := range refs {
		pos[i], rot[i], z[i], zShift[i] = r.SeamPosition, r.DeltaRot, r.DeltaZ, r.DeltaZShift
		plain[i] = filepath.Join(dir, r.Name)
	}
	transforms := table.Empty()
	for _, err := range []error{
		transforms.SetStrings(models.ReferenceImage, plain),
		transforms.SetInts(seamPositionLabel, pos),
		transforms.SetFloats(deltaRotLabel, rot),
		transforms.SetFloats(deltaZLabel, z),
		transforms.SetFloats(deltaZShiftLabel, zShift),
	} {
		if err != nil {
			return nil, err
		}
	}

	f := starfile.New()
	f.SetLoop(ReferencesBlock, images)
	f.SetLoop(TransformsBlock, transforms)
	return f, nil
}

// WriteSeamReferences checks the output preconditions, creates outputDir and
// writes the seam reference catalog into it
func WriteSeamReferences(params *Params, refs []SeamReference) (string, error) {
	if err := CheckOutput(params.OutputDir, params.WorkDir, params.SkipPipelineCheck); err != nil {
		return "", err
	}
	f, err := SeamReferenceCatalog(refs, params.OutputDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(params.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(params.OutputDir, SeamRefsFile)
	if err := f.Write(path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// RevertImageName points a segment-average image name back at the original
// extraction directory. The leading component of name (the stack index and
// top-level job directory) and its file name are kept; everything in between
// is replaced by extractPath without its first component.
func RevertImageName(name, extractPath string) string {
	parts := strings.Split(name, "/")
	out := []string{parts[0]}
	if dirs := strings.Split(strings.Trim(extractPath, "/"), "/"); len(dirs) > 1 {
		out = append(out, dirs[1:]...)
	}
	if len(parts) > 1 {
		out = append(out, parts[len(parts)-1])
	}
	return strings.Join(out, "/")
}

// RevertImageNames rewrites every image name of the particle datablock in place
func RevertImageNames(f *starfile.File, extractPath string) error {
	particles, err := f.Loop(models.ParticlesBlock)
	if err != nil {
		return err
	}
	names, err := particles.Strings(models.ImageName)
	if err != nil {
		return err
	}
	for i, n := range names {
		names[i] = RevertImageName(n, extractPath)
	}
	return particles.SetStrings(models.ImageName, names)
}

// Revert reads inputFile, reverts its image names and writes the result as
// particles_reverted_data.star into outputDir. outputDir may already exist;
// an existing reverted catalog is never overwritten.
func Revert(inputFile, outputDir, extractPath string) (string, error) {
	if outputDir == "" {
		return "", fmt.Errorf("no output directory given")
	}
	path := filepath.Join(outputDir, RevertFile)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrTargetExists, path)
	}
	f, err := starfile.Read(inputFile)
	if err != nil {
		return "", fmt.Errorf("loading %s: %w", inputFile, err)
	}
	if err := RevertImageNames(f, extractPath); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := f.Write(path); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
