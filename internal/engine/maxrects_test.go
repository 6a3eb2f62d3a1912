package engine

import (
	"math/rand"
	"testing"

	"github.com/atlaspack/atlaspack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRects(r *rand.Rand, maxSize, count int) []packRect {
	rects := make([]packRect, count)
	for i := range rects {
		rects[i] = packRect{
			index: i,
			w:     1 + r.Intn(maxSize),
			h:     1 + r.Intn(maxSize),
		}
	}
	return rects
}

func overlaps(a, b placedRect) bool {
	return a.x < b.x+b.w && a.x+a.w > b.x && a.y < b.y+b.h && a.y+a.h > b.y
}

func TestPack_SingleRect(t *testing.T) {
	b := binPacker{}
	placed, leftover := b.pack(64, 64, model.MethodBestShortSideFit, []packRect{{index: 0, w: 10, h: 20}})

	require.Len(t, placed, 1)
	assert.Len(t, leftover, 0)
	assert.Equal(t, 0, placed[0].x)
	assert.Equal(t, 0, placed[0].y)
	assert.Equal(t, 10, placed[0].w)
	assert.Equal(t, 20, placed[0].h)
	assert.False(t, placed[0].rotated)
}

func TestPack_BestShortSideFit_PrefersTightFit(t *testing.T) {
	// The 100x50 rectangle fits the 100x100 bin with zero leftover on one
	// axis, so it is placed first; the 50x50 then lands below it.
	b := binPacker{}
	rects := []packRect{
		{index: 0, w: 50, h: 50},
		{index: 1, w: 100, h: 50},
	}
	placed, leftover := b.pack(100, 100, model.MethodBestShortSideFit, rects)

	require.Len(t, placed, 2)
	assert.Len(t, leftover, 0)
	assert.Equal(t, 1, placed[0].index)
	assert.Equal(t, 0, placed[0].x)
	assert.Equal(t, 0, placed[0].y)
	assert.Equal(t, 0, placed[1].x)
	assert.Equal(t, 50, placed[1].y)
}

func TestPack_BottomLeft_FillsRow(t *testing.T) {
	b := binPacker{}
	rects := []packRect{
		{index: 0, w: 10, h: 10},
		{index: 1, w: 10, h: 10},
		{index: 2, w: 10, h: 10},
	}
	placed, leftover := b.pack(100, 100, model.MethodBottomLeftRule, rects)

	require.Len(t, placed, 3)
	assert.Len(t, leftover, 0)
	xs := make(map[int]bool)
	for _, p := range placed {
		assert.Equal(t, 0, p.y, "bottom-left packing should keep the first row at y=0")
		xs[p.x] = true
	}
	assert.Equal(t, map[int]bool{0: true, 10: true, 20: true}, xs)
}

func TestPack_ForcedRotation(t *testing.T) {
	b := binPacker{allowRotate: true}
	placed, leftover := b.pack(10, 40, model.MethodBestShortSideFit, []packRect{{index: 0, w: 30, h: 5}})

	require.Len(t, placed, 1)
	assert.Len(t, leftover, 0)
	assert.True(t, placed[0].rotated)
	assert.Equal(t, 5, placed[0].w)
	assert.Equal(t, 30, placed[0].h)
}

func TestPack_RotationDisabled(t *testing.T) {
	b := binPacker{}
	placed, leftover := b.pack(10, 40, model.MethodBestShortSideFit, []packRect{{index: 0, w: 30, h: 5}})

	assert.Len(t, placed, 0)
	require.Len(t, leftover, 1)
	assert.Equal(t, 0, leftover[0].index)
}

func TestPack_LeftoverPartition(t *testing.T) {
	b := binPacker{}
	rects := []packRect{
		{index: 0, w: 40, h: 40},
		{index: 1, w: 40, h: 40},
	}
	placed, leftover := b.pack(50, 50, model.MethodBestAreaFit, rects)

	require.Len(t, placed, 1)
	require.Len(t, leftover, 1)
	assert.NotEqual(t, placed[0].index, leftover[0].index)
}

func TestPack_ContactPoint_StartsAtCorner(t *testing.T) {
	b := binPacker{}
	rects := []packRect{
		{index: 0, w: 16, h: 16},
		{index: 1, w: 16, h: 16},
	}
	placed, leftover := b.pack(64, 64, model.MethodContactPointRule, rects)

	require.Len(t, placed, 2)
	assert.Len(t, leftover, 0)
	assert.Equal(t, 0, placed[0].x)
	assert.Equal(t, 0, placed[0].y)
	// The second rectangle must share an edge with the first or a border.
	second := placed[1]
	touching := second.x == 0 || second.y == 0 ||
		second.x == placed[0].x+placed[0].w || second.y == placed[0].y+placed[0].h
	assert.True(t, touching, "contact point packing should keep rectangles adjacent, got %+v", second)
}

func TestPack_Invariants(t *testing.T) {
	r := rand.New(rand.NewSource(0x1234))
	methods := []model.PackMethod{
		model.MethodBestShortSideFit,
		model.MethodBestLongSideFit,
		model.MethodBestAreaFit,
		model.MethodBottomLeftRule,
		model.MethodContactPointRule,
	}
	sets := [][]packRect{
		makeRects(r, 40, 60),
		makeRects(r, 8, 50),
		makeRects(r, 120, 12),
	}

	for _, method := range methods {
		for _, rotate := range []bool{false, true} {
			b := binPacker{allowRotate: rotate}
			for _, rects := range sets {
				work := make([]packRect, len(rects))
				copy(work, rects)
				placed, leftover := b.pack(256, 256, method, work)

				assert.Equal(t, len(rects), len(placed)+len(leftover),
					"%v: every rectangle is either placed or left over", method)

				seen := make(map[int]bool)
				for _, p := range placed {
					assert.False(t, seen[p.index], "%v: rectangle %d placed twice", method, p.index)
					seen[p.index] = true
					assert.GreaterOrEqual(t, p.x, 0)
					assert.GreaterOrEqual(t, p.y, 0)
					assert.LessOrEqual(t, p.x+p.w, 256, "%v: placement exceeds bin width", method)
					assert.LessOrEqual(t, p.y+p.h, 256, "%v: placement exceeds bin height", method)
				}
				for i := range placed {
					for j := i + 1; j < len(placed); j++ {
						assert.False(t, overlaps(placed[i], placed[j]),
							"%v: placements %d and %d overlap", method, placed[i].index, placed[j].index)
					}
				}
			}
		}
	}
}

func TestPack_EmptyInput(t *testing.T) {
	b := binPacker{}
	placed, leftover := b.pack(64, 64, model.MethodBestShortSideFit, nil)
	assert.Len(t, placed, 0)
	assert.Len(t, leftover, 0)
}

func TestPruneFreeList_RemovesContained(t *testing.T) {
	b := binPacker{
		freeRects: []freeRect{
			{x: 0, y: 0, w: 100, h: 100},
			{x: 10, y: 10, w: 20, h: 20},
			{x: 50, y: 0, w: 50, h: 100},
		},
	}
	b.pruneFreeList()
	require.Len(t, b.freeRects, 1)
	assert.Equal(t, freeRect{x: 0, y: 0, w: 100, h: 100}, b.freeRects[0])
}
