// Package config loads, normalizes, and validates vascular tree parameter
// files and turns them into the absolute TreeConfig the geometry stages
// consume.
//
// Loading is a fixed sequence: parse (YAML/JSON or a .vtree script) into a
// raw map, Normalize legacy key spellings, Decode into pointer-typed raw
// structs, Validate every constraint, and Build the absolute form.
package config

import "path/filepath"

// TrunkParent is the Parent value of branches that hang off the trunk.
const TrunkParent = -1

// BranchSpec describes one cylindrical branch.
//
// For primaries AngleDeg is the absolute rotation about Y and Position the
// absolute distance along the trunk. For secondaries AngleDeg is the delta
// subtracted from the owning primary's angle, and Position is the offset
// distance along that primary.
type BranchSpec struct {
	Parent           int     `json:"parent"`
	AngleDeg         float64 `json:"angleDeg"`
	RelativePosition float64 `json:"relativePosition"`
	Position         float64 `json:"position"`
	Diameter         float64 `json:"diameter"`
	Length           float64 `json:"length"`
}

// Radius returns half the diameter.
func (b BranchSpec) Radius() float64 { return b.Diameter / 2 }

// AdapterSpec is the optional end fitting on the trunk's proximal end.
type AdapterSpec struct {
	InternalDiameter float64 `json:"internalDiameter"`
	ExternalDiameter float64 `json:"externalDiameter"`
	Length           float64 `json:"length"`
}

// Rounding holds the four fillet radii in mm.
type Rounding struct {
	ExternalMajor float64 `json:"externalMajor"`
	ExternalMicro float64 `json:"externalMicro"`
	InternalMajor float64 `json:"internalMajor"`
	InternalMicro float64 `json:"internalMicro"`
}

// Output names where the finished model is written.
type Output struct {
	Folder   string `json:"folder"`
	Filename string `json:"filename"`
}

// Path joins folder and filename.
func (o Output) Path() string {
	return filepath.Join(o.Folder, o.Filename)
}

// TreeConfig is the validated, absolute parameter set.
type TreeConfig struct {
	Trunk            BranchSpec   `json:"trunk"`
	Primary          []BranchSpec `json:"primary"`
	Secondary        []BranchSpec `json:"secondary,omitempty"`
	SecondaryEnabled bool         `json:"secondaryEnabled"`
	WallThickness    float64      `json:"wallThickness"`
	AdapterEnabled   bool         `json:"adapterEnabled"`
	Adapter          AdapterSpec  `json:"adapter"`
	Rounding         Rounding     `json:"rounding"`
	Output           Output       `json:"output"`
}

// SecondariesPerPrimary is how many secondary branches each primary owns.
const SecondariesPerPrimary = 2

// ---------------------------------------------------------------------------
// Raw (on-disk) schema
// ---------------------------------------------------------------------------

// Pointer fields distinguish "missing" from "zero" so that validation can
// report required keys.

// RawTrunk is main_branch_params.
type RawTrunk struct {
	Diameter *float64 `mapstructure:"diameter"`
	Length   *float64 `mapstructure:"length"`
}

// RawBranchSet is primary_branch_params or secondary_branch_params.
type RawBranchSet struct {
	Angles            []float64 `mapstructure:"angles"`
	RelativePositions []float64 `mapstructure:"relative_positions"`
	Diameters         []float64 `mapstructure:"diameters"`
	Length            *float64  `mapstructure:"length"`
}

// RawAdapter is adapter_params.
type RawAdapter struct {
	InternalDiameter *float64 `mapstructure:"internal_diameter"`
	ExternalDiameter *float64 `mapstructure:"external_diameter"`
	Length           *float64 `mapstructure:"length"`
}

// RawRounding is the rounding block.
type RawRounding struct {
	ExternalIntersection *float64 `mapstructure:"external_intersection_rounding"`
	ExternalMicro        *float64 `mapstructure:"external_micro_rounding"`
	InternalIntersection *float64 `mapstructure:"internal_intersection_rounding"`
	InternalMicro        *float64 `mapstructure:"internal_micro_rounding"`
}

// RawOutput is the output block.
type RawOutput struct {
	Folder   *string `mapstructure:"folder"`
	Filename *string `mapstructure:"filename"`
}

// Raw is the decoded but unvalidated parameter record.
type Raw struct {
	MainBranch    *RawTrunk     `mapstructure:"main_branch_params"`
	Primary       *RawBranchSet `mapstructure:"primary_branch_params"`
	Secondary     *RawBranchSet `mapstructure:"secondary_branch_params"`
	WallThickness *float64      `mapstructure:"wall_thickness"`
	AddSecondary  *bool         `mapstructure:"add_secondary_branches"`
	AddAdapter    *bool         `mapstructure:"add_adapter"`
	Adapter       *RawAdapter   `mapstructure:"adapter_params"`
	Rounding      *RawRounding  `mapstructure:"rounding"`
	Output        *RawOutput    `mapstructure:"output"`
}

// adapterEnabled applies the add_adapter default.
func (r *Raw) adapterEnabled() bool {
	return r.AddAdapter == nil || *r.AddAdapter
}

func (r *Raw) secondaryEnabled() bool {
	return r.AddSecondary != nil && *r.AddSecondary
}
