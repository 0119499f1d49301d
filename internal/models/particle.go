package models

// Datablock names used by RELION v3.1 particle catalogs
const (
	// OpticsBlock holds per-optics-group acquisition metadata such as pixel size
	OpticsBlock = "data_optics"

	// ParticlesBlock holds one row per extracted particle
	ParticlesBlock = "data_particles"
)

// Column labels read or written by the correction passes.
// Labels are stored without the leading underscore used in STAR files.
const (
	MicrographName     = "rlnMicrographName"
	HelicalTubeID      = "rlnHelicalTubeID"
	HelicalTrackLength = "rlnHelicalTrackLengthAngst"
	ClassNumber        = "rlnClassNumber"
	AngleRot           = "rlnAngleRot"
	AngleRotPrior      = "rlnAngleRotPrior"
	AngleTilt          = "rlnAngleTilt"
	AngleTiltPrior     = "rlnAngleTiltPrior"
	AnglePsi           = "rlnAnglePsi"
	AnglePsiPrior      = "rlnAnglePsiPrior"
	AnglePsiFlipRatio  = "rlnAnglePsiFlipRatio"
	OriginX            = "rlnOriginXAngst"
	OriginY            = "rlnOriginYAngst"
	ImageName          = "rlnImageName"
	ImagePixelSize     = "rlnImagePixelSize"
	ReferenceImage     = "rlnReferenceImage"
)

// FilamentKey lists the columns that identify which filament a particle belongs to
var FilamentKey = []string{MicrographName, HelicalTubeID}

// FilamentOrder lists the columns a particle catalog is sorted by before grouping,
// so that particles of one filament are adjacent and ordered along the filament axis
var FilamentOrder = []string{MicrographName, HelicalTubeID, HelicalTrackLength}

// Particle is a read-only view of one row of a particle catalog
type Particle struct {
	// Micrograph is the micrograph the particle was picked from
	Micrograph string

	// TubeID identifies the filament within its micrograph
	TubeID int

	// TrackLength is the arc-length position along the filament in angstrom
	TrackLength float64

	// Class is the class or protofilament-number label
	Class int

	// Rot, Tilt and Psi are the Euler angles in degrees
	Rot, Tilt, Psi float64

	// OriginX and OriginY are the in-plane shifts in angstrom
	OriginX, OriginY float64
}
