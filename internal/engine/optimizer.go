// Package engine implements the sheet packing core: a MaxRects placer
// and an optimizer that searches sheet sizes and heuristics for the
// fewest sheets and the smallest total area.
package engine

import (
	"math"

	"github.com/atlaspack/atlaspack/internal/model"
)

// sizeLimit caps unbounded sheet dimensions. Kept well below the integer
// range so area products cannot overflow.
const sizeLimit = 1_000_000

// Optimizer runs the sheet size and heuristic search.
type Optimizer struct {
	Settings model.PackSettings
}

func New(settings model.PackSettings) *Optimizer {
	return &Optimizer{Settings: settings}
}

// runSettings is one candidate of the search: a sheet size and the
// heuristic to pack it with.
type runSettings struct {
	width  int
	height int
	method model.PackMethod
}

// run is one evaluated candidate with its packed sheets.
type run struct {
	runSettings
	sheets    []model.PackSheet
	totalArea int
}

// betterThan prefers fewer sheets, then smaller total area.
func (r *run) betterThan(o *run) bool {
	if len(r.sheets) != len(o.sheets) {
		return len(r.sheets) < len(o.sheets)
	}
	return r.totalArea < o.totalArea
}

type optimizationStage int

const (
	stageFirstRun optimizationStage = iota
	stageMinimizeSheetCount
	stageShrinkSquare
	stageShrinkWidthFast
	stageShrinkHeightFast
	stageShrinkWidthSlow
	stageShrinkHeightSlow
	stageEnd
)

type optimizationState struct {
	perfectArea int
	settings    runSettings
	stage       optimizationStage
	firstMethod model.PackMethod
	iteration   int
}

// Pack arranges the given rectangles onto as few sheets as possible and
// returns the sheets in packing order. Rectangles that cannot fit within
// the maximum sheet size are silently dropped. The input slice is not
// modified.
func (o *Optimizer) Pack(sizes []model.PackSize) []model.PackSheet {
	settings := o.Settings
	accepted := correctSettings(&settings, sizes)
	if len(accepted) == 0 {
		return nil
	}

	perfectArea := 0
	for _, s := range accepted {
		perfectArea += s.Width * s.Height
	}

	state := optimizationState{
		perfectArea: perfectArea,
		settings:    initialRunSettings(&settings, perfectArea),
		stage:       stageFirstRun,
	}

	packer := binPacker{allowRotate: settings.AllowRotate}
	base := make([]packRect, len(accepted))
	for i, s := range accepted {
		base[i] = packRect{
			index: i,
			w:     s.Width + settings.ShapePadding,
			h:     s.Height + settings.ShapePadding,
		}
	}
	work := make([]packRect, 0, len(base))
	var best *run

	for {
		work = append(work[:0], base...)
		r := run{runSettings: state.settings}
		cancelled := false

		for !cancelled && len(work) > 0 {
			var placed []placedRect
			placed, work = packer.pack(
				r.width+settings.ShapePadding,
				r.height+settings.ShapePadding,
				r.method, work)
			if len(placed) == 0 {
				// Nothing fits the candidate sheet; abandon the run.
				cancelled = true
				continue
			}

			extentW, extentH := 0, 0
			for _, p := range placed {
				if x := p.x + p.w - settings.ShapePadding; x > extentW {
					extentW = x
				}
				if y := p.y + p.h - settings.ShapePadding; y > extentH {
					extentH = y
				}
			}
			w, h := extentW, extentH
			correctSize(&settings, &w, &h)
			applyPadding(&settings, &w, &h, false)

			r.sheets = append(r.sheets, model.PackSheet{Width: w, Height: h})
			r.totalArea += w * h

			if best != nil && !r.betterThan(best) {
				cancelled = true
				continue
			}

			sheet := &r.sheets[len(r.sheets)-1]
			sheet.Placements = make([]model.Placement, 0, len(placed))
			for _, p := range placed {
				sheet.Placements = append(sheet.Placements, model.Placement{
					Size:    accepted[p.index],
					X:       p.x + settings.BorderPadding,
					Y:       p.y + settings.BorderPadding,
					Rotated: p.rotated,
				})
			}
		}

		if !cancelled && (best == nil || r.betterThan(best)) {
			saved := r
			best = &saved
		}
		if best == nil {
			return nil
		}
		if !nextRunSettings(&state, &settings, best) {
			break
		}
	}

	if settings.MaxSheets > 0 && len(best.sheets) > settings.MaxSheets {
		best.sheets = best.sheets[:settings.MaxSheets]
	}
	return best.sheets
}

// PackSprites packs the given sprites and resolves the placements back
// to sprite records. Sprites left out of the result, whether oversized
// or clipped by the sheet limit, are reported as Dropped.
func (o *Optimizer) PackSprites(sprites []model.Sprite) model.AtlasResult {
	sizes := make([]model.PackSize, len(sprites))
	for i, sp := range sprites {
		sizes[i] = model.PackSize{ID: i, Width: sp.Width, Height: sp.Height}
	}

	sheets := o.Pack(sizes)

	var result model.AtlasResult
	placed := make([]bool, len(sprites))
	for _, sheet := range sheets {
		layout := model.AtlasSheet{Width: sheet.Width, Height: sheet.Height}
		for _, p := range sheet.Placements {
			placed[p.Size.ID] = true
			layout.Sprites = append(layout.Sprites, model.PlacedSprite{
				Sprite:  sprites[p.Size.ID],
				X:       p.X,
				Y:       p.Y,
				Rotated: p.Rotated,
			})
		}
		result.Sheets = append(result.Sheets, layout)
	}
	for i, ok := range placed {
		if !ok {
			result.Dropped = append(result.Dropped, sprites[i])
		}
	}
	return result
}

// applyPadding converts between outer sheet dimensions and the usable
// placement area. Indenting removes the border padding from both sides
// and adds the over-allocation; outdenting reverses it.
func applyPadding(s *model.PackSettings, w, h *int, indent bool) {
	dir := 1
	if !indent {
		dir = -1
	}
	*w -= dir * s.BorderPadding * 2
	*h -= dir * s.BorderPadding * 2
	*w += dir * s.OverAllocate
	*h += dir * s.OverAllocate
}

// canFit reports whether a rectangle fits the maximum sheet size in any
// allowed orientation.
func canFit(s *model.PackSettings, w, h int) bool {
	return (w <= s.MaxWidth && h <= s.MaxHeight) ||
		(s.AllowRotate && w <= s.MaxHeight && h <= s.MaxWidth)
}

// correctSettings normalizes the settings in place and returns the input
// rectangles that can fit on a single sheet, in input order. After the
// call the min/max bounds are expressed in usable (indented) dimensions
// and the minimums are large enough that every accepted rectangle fits a
// minimum-size sheet in some legal orientation.
func correctSettings(s *model.PackSettings, sizes []model.PackSize) []model.PackSize {
	if s.MaxWidth <= 0 || s.MaxWidth > sizeLimit {
		s.MaxWidth = sizeLimit
	}
	if s.MaxHeight <= 0 || s.MaxHeight > sizeLimit {
		s.MaxHeight = sizeLimit
	}
	s.MinWidth = clamp(s.MinWidth, 0, s.MaxWidth)
	s.MinHeight = clamp(s.MinHeight, 0, s.MaxHeight)

	// Fold padding and over-allocation into the bounds immediately, so the
	// bounds are in usable dimensions from here on.
	applyPadding(s, &s.MinWidth, &s.MinHeight, true)
	applyPadding(s, &s.MaxWidth, &s.MaxHeight, true)

	accepted := make([]model.PackSize, 0, len(sizes))
	maxRectW, maxRectH := 0, 0
	for _, size := range sizes {
		if size.Width < 1 || size.Height < 1 {
			continue
		}
		if !canFit(s, size.Width, size.Height) {
			continue
		}
		accepted = append(accepted, size)

		w, h := size.Width, size.Height
		if s.AllowRotate {
			// Prefer the portrait orientation when it satisfies the
			// limits; fall back to landscape, which must fit since the
			// rectangle was accepted.
			pw, ph := min(w, h), max(w, h)
			if pw <= s.MaxWidth && ph <= s.MaxHeight {
				w, h = pw, ph
			} else {
				w, h = ph, pw
			}
		}
		maxRectW = max(maxRectW, w)
		maxRectH = max(maxRectH, h)
	}

	s.MinWidth = max(s.MinWidth, maxRectW)
	s.MinHeight = max(s.MinHeight, maxRectH)
	return accepted
}

// correctSize adjusts a candidate sheet size to the configured
// constraints. The ceil-then-floor pair first expands to clear the
// minimum, then contracts to respect the maximum.
func correctSize(s *model.PackSettings, w, h *int) {
	*w = max(*w, s.MinWidth)
	*h = max(*h, s.MinHeight)
	applyPadding(s, w, h, false)

	if s.PowerOfTwo {
		*w = ceilPow2(*w)
		*h = ceilPow2(*h)
	}
	if s.AlignWidth > 0 {
		*w = alignCeil(*w, s.AlignWidth)
	}
	if s.Square {
		*w = max(*w, *h)
		*h = *w
	}

	applyPadding(s, w, h, true)
	*w = min(*w, s.MaxWidth)
	*h = min(*h, s.MaxHeight)
	applyPadding(s, w, h, false)

	if s.PowerOfTwo {
		*w = floorPow2(*w)
		*h = floorPow2(*h)
	}
	if s.AlignWidth > 0 {
		*w = alignFloor(*w, s.AlignWidth)
	}
	if s.Square {
		*w = min(*w, *h)
		*h = *w
	}

	applyPadding(s, w, h, true)
}

// getRunSize derives a near-square candidate sheet size covering the
// given area, clamped to the configured bounds.
func getRunSize(s *model.PackSettings, area int) (int, int) {
	w := int(math.Sqrt(float64(area)))
	if w < 1 {
		w = 1
	}
	h := divCeil(area, w)
	if w < s.MinWidth || w > s.MaxWidth {
		w = clamp(w, s.MinWidth, s.MaxWidth)
		h = divCeil(area, w)
	} else if h < s.MinHeight || h > s.MaxHeight {
		h = clamp(h, s.MinHeight, s.MaxHeight)
		w = divCeil(area, h)
	}
	correctSize(s, &w, &h)
	return w, h
}

// initialRunSettings seeds the search with a sheet a quarter larger than
// the perfect area.
func initialRunSettings(s *model.PackSettings, perfectArea int) runSettings {
	method := s.Method
	if method == model.MethodUndefined {
		method = model.MethodBestLongSideFit
	}
	w, h := getRunSize(s, perfectArea*5/4)
	return runSettings{width: w, height: h, method: method}
}

// advanceMethod moves to the next heuristic, wrapping past the last one,
// and returns false once the cycle has come back to first.
func advanceMethod(m *model.PackMethod, first model.PackMethod) bool {
	if *m == model.MethodContactPointRule {
		*m = model.MethodBestShortSideFit
	} else {
		*m++
	}
	return *m != first
}

// stepStage mutates the candidate for the current stage. It returns true
// while the stage should be kept, false to advance to the next stage.
func stepStage(state *optimizationState, s *model.PackSettings, best *run) bool {
	rs := &state.settings

	switch state.stage {
	case stageFirstRun, stageEnd:
		return false

	case stageMinimizeSheetCount:
		if len(best.sheets) <= 1 || state.iteration > 5 {
			return false
		}
		// Grow width and height alternately until the added area covers
		// the smallest (last) sheet or the bounds are hit.
		last := best.sheets[len(best.sheets)-1]
		area := last.Width * last.Height
		for i := 0; area > 0; i++ {
			if rs.width == s.MaxWidth && rs.height == s.MaxHeight {
				break
			}
			if rs.height == s.MaxHeight || (rs.width < s.MaxWidth && i%2 == 1) {
				rs.width++
				area -= rs.height
			} else {
				rs.height++
				area -= rs.width
			}
		}
		return true

	case stageShrinkSquare:
		if rs.width != best.width || rs.height != best.height || state.iteration > 5 {
			return false
		}
		w, h := getRunSize(s, state.perfectArea)
		rs.width = (rs.width + w) / 2
		rs.height = (rs.height + h) / 2
		return true

	default:
		// The four shrink stages share their convergence handling: when
		// a stage stops improving and no method was pinned, retry the
		// remaining heuristics from the best size before moving on.
		if rs.width != best.width || rs.height != best.height || state.iteration > 5 {
			if s.Method != model.MethodUndefined || !advanceMethod(&rs.method, state.firstMethod) {
				return false
			}
			// The contact point rule is too slow to retry here.
			if rs.method == model.MethodContactPointRule && !advanceMethod(&rs.method, state.firstMethod) {
				return false
			}
			rs.width = best.width
			rs.height = best.height
		}

		w, h := getRunSize(s, state.perfectArea)
		switch state.stage {
		case stageShrinkWidthFast:
			if rs.width > w+4 {
				rs.width = (rs.width + w) / 2
			}
		case stageShrinkHeightFast:
			if rs.height > h+4 {
				rs.height = (rs.height + h) / 2
			}
		case stageShrinkWidthSlow:
			if rs.width > w {
				rs.width--
			}
		case stageShrinkHeightSlow:
			if rs.height > h {
				rs.height--
			}
		}
		return true
	}
}

// nextRunSettings advances the stage machine until it proposes a
// candidate different from the previous one. It returns false when the
// search is exhausted.
func nextRunSettings(state *optimizationState, s *model.PackSettings, best *run) bool {
	prev := state.settings
	for {
		if !stepStage(state, s, best) {
			if state.stage != stageEnd {
				state.stage++
				state.settings.width = best.width
				state.settings.height = best.height
				state.settings.method = best.method
				state.firstMethod = best.method
				state.iteration = 0
				continue
			}
		}
		if state.stage == stageEnd {
			return false
		}

		state.iteration++

		w, h := state.settings.width, state.settings.height
		correctSize(s, &w, &h)
		if w != prev.width || h != prev.height || state.settings.method != prev.method {
			state.settings.width = w
			state.settings.height = h
			return true
		}
	}
}

// ceilPow2 returns the smallest power of two >= n, or 0 for n <= 0.
func ceilPow2(n int) int {
	if n <= 0 {
		return 0
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// floorPow2 returns the largest power of two <= n, or 0 for n <= 0.
func floorPow2(n int) int {
	if n <= 0 {
		return 0
	}
	p := 1
	for p*2 <= n {
		p <<= 1
	}
	return p
}

func alignCeil(n, m int) int {
	return (n + m - 1) / m * m
}

func alignFloor(n, m int) int {
	return n / m * m
}

func divCeil(a, b int) int {
	return (a + b - 1) / b
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
