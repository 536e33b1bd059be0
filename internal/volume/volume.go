// Package volume reads radar polar-volume documents and classifies the
// objects they contain.
//
// A volume document is a JSON rendering of the ODIM layout: a top-level
// "what" group naming the object type and source, a "where" group with the
// radar site, one dataset per elevation sweep and an optional "how" group.
package volume

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bmvandoren/vol2bird/internal/profile"
)

// ObjectType is the declared type of a radar data object.
type ObjectType int

const (
	TypeUndefined ObjectType = iota
	TypePVOL                 // polar volume
	TypeSCAN                 // single polar scan
	TypeVP                   // vertical profile
	TypeIMAGE                // cartesian image
	TypeCOMP                 // composite
)

var objectTypeNames = map[ObjectType]string{
	TypeUndefined: "UNDEFINED",
	TypePVOL:      "PVOL",
	TypeSCAN:      "SCAN",
	TypeVP:        "VP",
	TypeIMAGE:     "IMAGE",
	TypeCOMP:      "COMP",
}

func (t ObjectType) String() string {
	if s, ok := objectTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("ObjectType(%d)", int(t))
}

// ParseObjectType maps an ODIM what/object string to an ObjectType.
// Unknown strings map to TypeUndefined.
func ParseObjectType(s string) ObjectType {
	s = strings.ToUpper(strings.TrimSpace(s))
	for t, name := range objectTypeNames {
		if name == s {
			return t
		}
	}
	return TypeUndefined
}

// Object is any radar data object that declares its type.
type Object interface {
	ObjectType() ObjectType
}

// ErrMalformed is returned when a document cannot be decoded.
var ErrMalformed = errors.New("malformed volume document")

// What is the ODIM top-level "what" group.
type What struct {
	Object string `json:"object"`
	Source string `json:"source"`
	Date   string `json:"date"` // YYYYMMDD
	Time   string `json:"time"` // HHMMSS
}

// Where is the radar site location.
type Where struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Height float64 `json:"height"` // metres above sea level
}

// Sweep is one elevation scan of a polar volume.
type Sweep struct {
	Elangle float64 `json:"elangle"` // degrees
	NBins   int     `json:"nbins"`
	NRays   int     `json:"nrays"`
	RScale  float64 `json:"rscale"` // metres per bin
	RStart  float64 `json:"rstart"` // km
}

// Recording holds profile matrices stored alongside a volume by the native
// engine (ODIM how/vpb). Each row is one height bin. A null cell in the
// document is a bin without data and decodes to NaN.
type Recording struct {
	Columns int
	Bio     [][]float64
	All     [][]float64
}

type recordingJSON struct {
	Columns int              `json:"columns"`
	Bio     [][]profile.Cell `json:"bio"`
	All     [][]profile.Cell `json:"all"`
}

func (r Recording) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordingJSON{
		Columns: r.Columns,
		Bio:     toCells(r.Bio),
		All:     toCells(r.All),
	})
}

func (r *Recording) UnmarshalJSON(data []byte) error {
	var j recordingJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*r = Recording{Columns: j.Columns, Bio: toFloats(j.Bio), All: toFloats(j.All)}
	return nil
}

func toCells(rows [][]float64) [][]profile.Cell {
	if rows == nil {
		return nil
	}
	out := make([][]profile.Cell, len(rows))
	for i, row := range rows {
		out[i] = profile.Cells(row)
	}
	return out
}

func toFloats(rows [][]profile.Cell) [][]float64 {
	if rows == nil {
		return nil
	}
	out := make([][]float64, len(rows))
	for i, row := range rows {
		out[i] = profile.Floats(row)
	}
	return out
}

type how struct {
	VPB *Recording `json:"vpb,omitempty"`
}

type document struct {
	What     What    `json:"what"`
	Where    Where   `json:"where"`
	Datasets []Sweep `json:"datasets"`
	How      how     `json:"how"`
}

// PolarVolume is a stack of sweeps at different elevations.
type PolarVolume struct {
	what      What
	where     Where
	sweeps    []Sweep
	recording *Recording
}

func (*PolarVolume) ObjectType() ObjectType { return TypePVOL }

func (v *PolarVolume) Source() string { return v.what.Source }
func (v *PolarVolume) Date() string   { return v.what.Date }
func (v *PolarVolume) Time() string   { return v.what.Time }
func (v *PolarVolume) Where() Where   { return v.where }

// Sweeps returns the volume's sweeps in document order.
func (v *PolarVolume) Sweeps() []Sweep { return v.sweeps }

// Recording returns the stored profile matrices, or nil when the volume
// carries none.
func (v *PolarVolume) Recording() *Recording { return v.recording }

// NewPolarVolume builds a volume in memory. It is mostly useful for tests
// and for backends that synthesise volumes.
func NewPolarVolume(what What, where Where, sweeps []Sweep, rec *Recording) *PolarVolume {
	what.Object = TypePVOL.String()
	return &PolarVolume{what: what, where: where, sweeps: sweeps, recording: rec}
}

// Generic is a non-volume object. Only its type and metadata are kept.
type Generic struct {
	typ  ObjectType
	what What
}

func (g *Generic) ObjectType() ObjectType { return g.typ }
func (g *Generic) Source() string         { return g.what.Source }

// Decode parses a volume document. Documents whose what/object is not PVOL
// decode to a *Generic.
func Decode(data []byte) (Object, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	typ := ParseObjectType(doc.What.Object)
	if typ != TypePVOL {
		return &Generic{typ: typ, what: doc.What}, nil
	}
	return &PolarVolume{
		what:      doc.What,
		where:     doc.Where,
		sweeps:    doc.Datasets,
		recording: doc.How.VPB,
	}, nil
}

// Encode renders a polar volume back to its document form.
func Encode(v *PolarVolume) ([]byte, error) {
	doc := document{
		What:     v.what,
		Where:    v.where,
		Datasets: v.sweeps,
		How:      how{VPB: v.recording},
	}
	doc.What.Object = TypePVOL.String()
	return json.MarshalIndent(doc, "", "  ")
}
