package engine

import (
	"math"

	"github.com/atlaspack/atlaspack/internal/model"
)

// freeRect is a maximal empty axis-aligned region inside a bin.
type freeRect struct {
	x, y, w, h int
}

// packRect is a rectangle waiting to be placed. Width and height carry
// the shape padding already applied by the optimizer; index points back
// into the accepted input slice.
type packRect struct {
	index int
	w, h  int
}

// placedRect records where a rectangle ended up inside the current bin.
// Width and height are the padded size tracked in the free-rectangle set.
type placedRect struct {
	index   int
	x, y    int
	w, h    int
	rotated bool
}

// binPacker is a MaxRects bin packer. It keeps no state between packs;
// the free and used lists are only retained so their backing arrays can
// be reused across the many placer invocations of one optimizer run.
type binPacker struct {
	binWidth    int
	binHeight   int
	allowRotate bool
	freeRects   []freeRect
	usedRects   []freeRect
}

// pack places as many rectangles as possible into a bin of the given
// size and returns the placements plus whatever did not fit. The input
// slice is consumed. Each round scores every remaining rectangle against
// every free rectangle under the chosen heuristic and commits the single
// best candidate.
func (b *binPacker) pack(width, height int, method model.PackMethod, rects []packRect) ([]placedRect, []packRect) {
	b.binWidth = width
	b.binHeight = height
	b.freeRects = append(b.freeRects[:0], freeRect{w: width, h: height})
	b.usedRects = b.usedRects[:0]

	var placed []placedRect
	for len(rects) > 0 {
		bestIndex := -1
		var bestNode placedRect
		bestScore1 := math.MaxInt
		bestScore2 := math.MaxInt

		for i, r := range rects {
			node, score1, score2, ok := b.findPosition(method, r.w, r.h)
			if ok && (score1 < bestScore1 || (score1 == bestScore1 && score2 < bestScore2)) {
				bestScore1 = score1
				bestScore2 = score2
				bestNode = node
				bestNode.index = r.index
				bestIndex = i
			}
		}
		if bestIndex < 0 {
			break
		}

		b.place(bestNode)
		placed = append(placed, bestNode)
		rects = append(rects[:bestIndex], rects[bestIndex+1:]...)
	}
	return placed, rects
}

// findPosition scores the best position for a w x h rectangle under the
// given heuristic. Lower scores win; score2 breaks ties.
func (b *binPacker) findPosition(method model.PackMethod, w, h int) (placedRect, int, int, bool) {
	switch method {
	case model.MethodBestLongSideFit:
		return b.findBestLongSideFit(w, h)
	case model.MethodBestAreaFit:
		return b.findBestAreaFit(w, h)
	case model.MethodBottomLeftRule:
		return b.findBottomLeft(w, h)
	case model.MethodContactPointRule:
		return b.findContactPoint(w, h)
	default:
		return b.findBestShortSideFit(w, h)
	}
}

func (b *binPacker) findBestShortSideFit(w, h int) (placedRect, int, int, bool) {
	var node placedRect
	bestShort := math.MaxInt
	bestLong := math.MaxInt
	found := false

	for _, f := range b.freeRects {
		if f.w >= w && f.h >= h {
			leftoverH := f.w - w
			leftoverV := f.h - h
			short := min(leftoverH, leftoverV)
			long := max(leftoverH, leftoverV)
			if short < bestShort || (short == bestShort && long < bestLong) {
				node = placedRect{x: f.x, y: f.y, w: w, h: h}
				bestShort = short
				bestLong = long
				found = true
			}
		}
		if b.allowRotate && f.w >= h && f.h >= w {
			leftoverH := f.w - h
			leftoverV := f.h - w
			short := min(leftoverH, leftoverV)
			long := max(leftoverH, leftoverV)
			if short < bestShort || (short == bestShort && long < bestLong) {
				node = placedRect{x: f.x, y: f.y, w: h, h: w, rotated: true}
				bestShort = short
				bestLong = long
				found = true
			}
		}
	}
	return node, bestShort, bestLong, found
}

func (b *binPacker) findBestLongSideFit(w, h int) (placedRect, int, int, bool) {
	var node placedRect
	bestShort := math.MaxInt
	bestLong := math.MaxInt
	found := false

	for _, f := range b.freeRects {
		if f.w >= w && f.h >= h {
			leftoverH := f.w - w
			leftoverV := f.h - h
			short := min(leftoverH, leftoverV)
			long := max(leftoverH, leftoverV)
			if long < bestLong || (long == bestLong && short < bestShort) {
				node = placedRect{x: f.x, y: f.y, w: w, h: h}
				bestShort = short
				bestLong = long
				found = true
			}
		}
		if b.allowRotate && f.w >= h && f.h >= w {
			leftoverH := f.w - h
			leftoverV := f.h - w
			short := min(leftoverH, leftoverV)
			long := max(leftoverH, leftoverV)
			if long < bestLong || (long == bestLong && short < bestShort) {
				node = placedRect{x: f.x, y: f.y, w: h, h: w, rotated: true}
				bestShort = short
				bestLong = long
				found = true
			}
		}
	}
	return node, bestLong, bestShort, found
}

func (b *binPacker) findBestAreaFit(w, h int) (placedRect, int, int, bool) {
	var node placedRect
	bestArea := math.MaxInt
	bestShort := math.MaxInt
	found := false

	for _, f := range b.freeRects {
		areaFit := f.w*f.h - w*h

		if f.w >= w && f.h >= h {
			short := min(f.w-w, f.h-h)
			if areaFit < bestArea || (areaFit == bestArea && short < bestShort) {
				node = placedRect{x: f.x, y: f.y, w: w, h: h}
				bestArea = areaFit
				bestShort = short
				found = true
			}
		}
		if b.allowRotate && f.w >= h && f.h >= w {
			short := min(f.w-h, f.h-w)
			if areaFit < bestArea || (areaFit == bestArea && short < bestShort) {
				node = placedRect{x: f.x, y: f.y, w: h, h: w, rotated: true}
				bestArea = areaFit
				bestShort = short
				found = true
			}
		}
	}
	return node, bestArea, bestShort, found
}

func (b *binPacker) findBottomLeft(w, h int) (placedRect, int, int, bool) {
	var node placedRect
	bestY := math.MaxInt
	bestX := math.MaxInt
	found := false

	for _, f := range b.freeRects {
		if f.w >= w && f.h >= h {
			topSideY := f.y + h
			if topSideY < bestY || (topSideY == bestY && f.x < bestX) {
				node = placedRect{x: f.x, y: f.y, w: w, h: h}
				bestY = topSideY
				bestX = f.x
				found = true
			}
		}
		if b.allowRotate && f.w >= h && f.h >= w {
			topSideY := f.y + w
			if topSideY < bestY || (topSideY == bestY && f.x < bestX) {
				node = placedRect{x: f.x, y: f.y, w: h, h: w, rotated: true}
				bestY = topSideY
				bestX = f.x
				found = true
			}
		}
	}
	return node, bestY, bestX, found
}

func (b *binPacker) findContactPoint(w, h int) (placedRect, int, int, bool) {
	var node placedRect
	bestScore := -1
	found := false

	for _, f := range b.freeRects {
		if f.w >= w && f.h >= h {
			score := b.contactPointScore(f.x, f.y, w, h)
			if score > bestScore {
				node = placedRect{x: f.x, y: f.y, w: w, h: h}
				bestScore = score
				found = true
			}
		}
		if b.allowRotate && f.w >= h && f.h >= w {
			score := b.contactPointScore(f.x, f.y, h, w)
			if score > bestScore {
				node = placedRect{x: f.x, y: f.y, w: h, h: w, rotated: true}
				bestScore = score
				found = true
			}
		}
	}
	// Contact scores are maximized; negate so the caller's smaller-wins
	// comparison still applies.
	return node, -bestScore, math.MaxInt, found
}

// commonIntervalLength returns the length of the overlap of [s1,e1] and
// [s2,e2], or 0 when they are disjoint.
func commonIntervalLength(s1, e1, s2, e2 int) int {
	if e1 < s2 || e2 < s1 {
		return 0
	}
	return min(e1, e2) - max(s1, s2)
}

func (b *binPacker) contactPointScore(x, y, w, h int) int {
	score := 0
	if x == 0 || x+w == b.binWidth {
		score += h
	}
	if y == 0 || y+h == b.binHeight {
		score += w
	}
	for _, u := range b.usedRects {
		if u.x == x+w || u.x+u.w == x {
			score += commonIntervalLength(u.y, u.y+u.h, y, y+h)
		}
		if u.y == y+h || u.y+u.h == y {
			score += commonIntervalLength(u.x, u.x+u.w, x, x+w)
		}
	}
	return score
}

// place removes the placed rectangle from free space, splitting every
// intersecting free rectangle into its maximal remainders.
func (b *binPacker) place(node placedRect) {
	// Only the free rectangles present before the splits need testing;
	// splitFreeRect appends new ones past n.
	n := len(b.freeRects)
	for i := 0; i < n; {
		if b.splitFreeRect(b.freeRects[i], node) {
			b.freeRects = append(b.freeRects[:i], b.freeRects[i+1:]...)
			n--
		} else {
			i++
		}
	}
	b.pruneFreeList()
	b.usedRects = append(b.usedRects, freeRect{x: node.x, y: node.y, w: node.w, h: node.h})
}

// splitFreeRect reports whether the used rectangle intersects f and, if
// so, appends the up to four maximal sub-rectangles of f lying outside
// it.
func (b *binPacker) splitFreeRect(f freeRect, used placedRect) bool {
	if used.x >= f.x+f.w || used.x+used.w <= f.x ||
		used.y >= f.y+f.h || used.y+used.h <= f.y {
		return false
	}

	if used.x < f.x+f.w && used.x+used.w > f.x {
		// Above the used rectangle.
		if used.y > f.y && used.y < f.y+f.h {
			nf := f
			nf.h = used.y - f.y
			b.freeRects = append(b.freeRects, nf)
		}
		// Below the used rectangle.
		if used.y+used.h < f.y+f.h {
			nf := f
			nf.y = used.y + used.h
			nf.h = f.y + f.h - (used.y + used.h)
			b.freeRects = append(b.freeRects, nf)
		}
	}
	if used.y < f.y+f.h && used.y+used.h > f.y {
		// Left of the used rectangle.
		if used.x > f.x && used.x < f.x+f.w {
			nf := f
			nf.w = used.x - f.x
			b.freeRects = append(b.freeRects, nf)
		}
		// Right of the used rectangle.
		if used.x+used.w < f.x+f.w {
			nf := f
			nf.x = used.x + used.w
			nf.w = f.x + f.w - (used.x + used.w)
			b.freeRects = append(b.freeRects, nf)
		}
	}
	return true
}

// pruneFreeList removes every free rectangle fully contained in another.
func (b *binPacker) pruneFreeList() {
	for i := 0; i < len(b.freeRects); i++ {
		for j := i + 1; j < len(b.freeRects); {
			if containsRect(b.freeRects[j], b.freeRects[i]) {
				b.freeRects = append(b.freeRects[:i], b.freeRects[i+1:]...)
				i--
				break
			}
			if containsRect(b.freeRects[i], b.freeRects[j]) {
				b.freeRects = append(b.freeRects[:j], b.freeRects[j+1:]...)
			} else {
				j++
			}
		}
	}
}

// containsRect returns true if outer fully contains inner.
func containsRect(outer, inner freeRect) bool {
	return outer.x <= inner.x && outer.y <= inner.y &&
		outer.x+outer.w >= inner.x+inner.w &&
		outer.y+outer.h >= inner.y+inner.h
}
