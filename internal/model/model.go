package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PackMethod selects the MaxRects free-rectangle choice heuristic used
// when placing rectangles into a sheet.
type PackMethod int

const (
	// MethodUndefined lets the optimizer pick a heuristic and retry the
	// search with each of the others except MethodContactPointRule.
	MethodUndefined PackMethod = iota
	MethodBestShortSideFit
	MethodBestLongSideFit
	MethodBestAreaFit
	MethodBottomLeftRule
	MethodContactPointRule
)

func (m PackMethod) String() string {
	switch m {
	case MethodBestShortSideFit:
		return "BestShortSideFit"
	case MethodBestLongSideFit:
		return "BestLongSideFit"
	case MethodBestAreaFit:
		return "BestAreaFit"
	case MethodBottomLeftRule:
		return "BottomLeftRule"
	case MethodContactPointRule:
		return "ContactPointRule"
	default:
		return "Undefined"
	}
}

// ParseMethod converts a method name to a PackMethod value. It accepts
// the full names and the usual short forms (bssf, blsf, baf, bl, cp).
func ParseMethod(s string) (PackMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "undefined":
		return MethodUndefined, nil
	case "bestshortsidefit", "bssf":
		return MethodBestShortSideFit, nil
	case "bestlongsidefit", "blsf":
		return MethodBestLongSideFit, nil
	case "bestareafit", "baf":
		return MethodBestAreaFit, nil
	case "bottomleftrule", "bottomleft", "bl":
		return MethodBottomLeftRule, nil
	case "contactpointrule", "contactpoint", "cp":
		return MethodContactPointRule, nil
	default:
		return MethodUndefined, fmt.Errorf("unknown pack method %q", s)
	}
}

// PackSize is a rectangle handed to the packing engine. The ID is opaque
// to the engine and is preserved in the output placements.
type PackSize struct {
	ID     int `json:"id"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PackSettings configures the packing engine. Zero maximums mean
// "unbounded" and are clamped to the engine's size limit.
type PackSettings struct {
	MinWidth  int `json:"min_width"`
	MinHeight int `json:"min_height"`
	MaxWidth  int `json:"max_width"`
	MaxHeight int `json:"max_height"`

	// BorderPadding is the empty margin around each sheet, ShapePadding
	// the minimum spacing between placed rectangles. OverAllocate adds
	// extra space to each sheet dimension.
	BorderPadding int `json:"border_padding"`
	ShapePadding  int `json:"shape_padding"`
	OverAllocate  int `json:"over_allocate"`

	AllowRotate bool `json:"allow_rotate"`
	PowerOfTwo  bool `json:"power_of_two"`
	Square      bool `json:"square"`

	// AlignWidth rounds sheet widths to a multiple of this value when
	// positive.
	AlignWidth int `json:"align_width"`

	Method PackMethod `json:"method"`

	// MaxSheets truncates the result when positive; 0 means unlimited.
	MaxSheets int `json:"max_sheets"`
}

// DefaultSettings returns the settings used for new projects.
func DefaultSettings() PackSettings {
	return PackSettings{
		MaxWidth:    2048,
		MaxHeight:   2048,
		AllowRotate: true,
		Method:      MethodUndefined,
	}
}

// Placement is a rectangle placed on a sheet. X and Y are the top-left
// corner; Rotated means the rectangle was turned 90 degrees.
type Placement struct {
	Size    PackSize `json:"size"`
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Rotated bool     `json:"rotated"`
}

// PlacedWidth returns the effective width considering rotation.
func (p Placement) PlacedWidth() int {
	if p.Rotated {
		return p.Size.Height
	}
	return p.Size.Width
}

// PlacedHeight returns the effective height considering rotation.
func (p Placement) PlacedHeight() int {
	if p.Rotated {
		return p.Size.Width
	}
	return p.Size.Height
}

// PackSheet is one packed sheet with its placements.
type PackSheet struct {
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Placements []Placement `json:"placements"`
}

// UsedArea returns the total area covered by placed rectangles.
func (s PackSheet) UsedArea() int {
	var total int
	for _, p := range s.Placements {
		total += p.PlacedWidth() * p.PlacedHeight()
	}
	return total
}

// TotalArea returns the sheet area.
func (s PackSheet) TotalArea() int {
	return s.Width * s.Height
}

// Efficiency returns the usage percentage.
func (s PackSheet) Efficiency() float64 {
	ta := s.TotalArea()
	if ta == 0 {
		return 0
	}
	return float64(s.UsedArea()) / float64(ta) * 100.0
}

// Sprite is a named rectangle to be packed onto an atlas sheet.
type Sprite struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func NewSprite(name string, w, h int) Sprite {
	return Sprite{
		ID:     uuid.New().String()[:8],
		Name:   name,
		Width:  w,
		Height: h,
	}
}

// PlacedSprite is a sprite placed on an atlas sheet.
type PlacedSprite struct {
	Sprite  Sprite `json:"sprite"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Rotated bool   `json:"rotated"`
}

// PlacedWidth returns the effective width considering rotation.
func (p PlacedSprite) PlacedWidth() int {
	if p.Rotated {
		return p.Sprite.Height
	}
	return p.Sprite.Width
}

// PlacedHeight returns the effective height considering rotation.
func (p PlacedSprite) PlacedHeight() int {
	if p.Rotated {
		return p.Sprite.Width
	}
	return p.Sprite.Height
}

// AtlasSheet is one output sheet with its placed sprites.
type AtlasSheet struct {
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Sprites []PlacedSprite `json:"sprites"`
}

// UsedArea returns the total area covered by placed sprites.
func (s AtlasSheet) UsedArea() int {
	var total int
	for _, p := range s.Sprites {
		total += p.PlacedWidth() * p.PlacedHeight()
	}
	return total
}

// TotalArea returns the sheet area.
func (s AtlasSheet) TotalArea() int {
	return s.Width * s.Height
}

// Efficiency returns the usage percentage.
func (s AtlasSheet) Efficiency() float64 {
	ta := s.TotalArea()
	if ta == 0 {
		return 0
	}
	return float64(s.UsedArea()) / float64(ta) * 100.0
}

// AtlasResult holds the full packing solution. Dropped lists sprites
// that were left out, either because they exceed the maximum sheet size
// or because the sheet limit clipped the result.
type AtlasResult struct {
	Sheets  []AtlasSheet `json:"sheets"`
	Dropped []Sprite     `json:"dropped,omitempty"`
}

// PlacedCount returns the number of sprites placed across all sheets.
func (r AtlasResult) PlacedCount() int {
	total := 0
	for _, s := range r.Sheets {
		total += len(s.Sprites)
	}
	return total
}

// TotalEfficiency returns overall sheet usage percentage.
func (r AtlasResult) TotalEfficiency() float64 {
	var used, total int
	for _, s := range r.Sheets {
		used += s.UsedArea()
		total += s.TotalArea()
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total) * 100.0
}

// Project ties everything together for save/load.
type Project struct {
	Name     string       `json:"name"`
	Sprites  []Sprite     `json:"sprites"`
	Settings PackSettings `json:"settings"`
	Result   *AtlasResult `json:"result,omitempty"`
}

func NewProject() Project {
	return Project{
		Name:     "Untitled",
		Sprites:  []Sprite{},
		Settings: DefaultSettings(),
	}
}
