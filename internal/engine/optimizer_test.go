package engine

import (
	"math/rand"
	"testing"

	"github.com/atlaspack/atlaspack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSettings() model.PackSettings {
	return model.PackSettings{
		MaxWidth:  64,
		MaxHeight: 64,
	}
}

func placedCount(sheets []model.PackSheet) int {
	total := 0
	for _, s := range sheets {
		total += len(s.Placements)
	}
	return total
}

// ─── Helper functions ────────────────────────────────────

func TestCeilPow2(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 17: 32, 1024: 1024, 1025: 2048}
	for in, want := range cases {
		assert.Equal(t, want, ceilPow2(in), "ceilPow2(%d)", in)
	}
}

func TestFloorPow2(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 4: 4, 5: 4, 17: 16, 1024: 1024, 2047: 1024}
	for in, want := range cases {
		assert.Equal(t, want, floorPow2(in), "floorPow2(%d)", in)
	}
}

func TestAlignHelpers(t *testing.T) {
	assert.Equal(t, 48, alignCeil(41, 16))
	assert.Equal(t, 48, alignCeil(48, 16))
	assert.Equal(t, 32, alignFloor(41, 16))
	assert.Equal(t, 48, alignFloor(48, 16))
}

func TestApplyPadding_RoundTrip(t *testing.T) {
	s := model.PackSettings{BorderPadding: 3, OverAllocate: 2}
	w, h := 100, 80
	applyPadding(&s, &w, &h, true)
	assert.Equal(t, 100-6+2, w)
	assert.Equal(t, 80-6+2, h)
	applyPadding(&s, &w, &h, false)
	assert.Equal(t, 100, w)
	assert.Equal(t, 80, h)
}

func TestAdvanceMethod_WrapsAndStops(t *testing.T) {
	m := model.MethodBestLongSideFit
	first := m
	seen := []model.PackMethod{}
	for advanceMethod(&m, first) {
		seen = append(seen, m)
	}
	assert.Equal(t, []model.PackMethod{
		model.MethodBestAreaFit,
		model.MethodBottomLeftRule,
		model.MethodContactPointRule,
		model.MethodBestShortSideFit,
	}, seen)
	assert.Equal(t, first, m)
}

// ─── Settings normalization ────────────────────────────────────

func TestCorrectSettings_ClampsAndRaisesMins(t *testing.T) {
	s := model.PackSettings{MinWidth: 500, MinHeight: -3, MaxWidth: 100, MaxHeight: 100}
	accepted := correctSettings(&s, []model.PackSize{{ID: 0, Width: 40, Height: 30}})

	require.Len(t, accepted, 1)
	// min_width was clamped to max_width, min_height up to the tallest
	// rectangle.
	assert.Equal(t, 100, s.MinWidth)
	assert.Equal(t, 30, s.MinHeight)
	assert.Equal(t, 100, s.MaxWidth)
	assert.Equal(t, 100, s.MaxHeight)
}

func TestCorrectSettings_UnsetMaxBecomesLimit(t *testing.T) {
	s := model.PackSettings{}
	correctSettings(&s, nil)
	assert.Equal(t, sizeLimit, s.MaxWidth)
	assert.Equal(t, sizeLimit, s.MaxHeight)
}

func TestCorrectSettings_DropsOversizedAndDegenerate(t *testing.T) {
	s := testSettings()
	accepted := correctSettings(&s, []model.PackSize{
		{ID: 0, Width: 10, Height: 10},
		{ID: 1, Width: 500, Height: 500},
		{ID: 2, Width: 0, Height: 5},
	})
	require.Len(t, accepted, 1)
	assert.Equal(t, 0, accepted[0].ID)
}

func TestCorrectSettings_RotatedFitKept(t *testing.T) {
	s := model.PackSettings{MaxWidth: 10, MaxHeight: 40, AllowRotate: true}
	accepted := correctSettings(&s, []model.PackSize{{ID: 0, Width: 30, Height: 5}})

	require.Len(t, accepted, 1)
	// The minimum sheet must hold the rectangle in its fitting
	// orientation.
	assert.Equal(t, 5, s.MinWidth)
	assert.Equal(t, 30, s.MinHeight)
}

// ─── Size correction ────────────────────────────────────

func TestCorrectSize_PowerOfTwo(t *testing.T) {
	s := model.PackSettings{MaxWidth: 1024, MaxHeight: 1024, PowerOfTwo: true}
	correctSettings(&s, nil)

	w, h := 20, 33
	correctSize(&s, &w, &h)
	assert.Equal(t, 32, w)
	assert.Equal(t, 64, h)
}

func TestCorrectSize_CeilThenFloorRespectsMax(t *testing.T) {
	// 200 rounds up to 256, which exceeds the maximum and is floored back
	// down to 128.
	s := model.PackSettings{MaxWidth: 200, MaxHeight: 200, PowerOfTwo: true}
	correctSettings(&s, nil)

	w, h := 200, 200
	correctSize(&s, &w, &h)
	assert.Equal(t, 128, w)
	assert.Equal(t, 128, h)
}

func TestCorrectSize_AlignWidth(t *testing.T) {
	s := model.PackSettings{MaxWidth: 1024, MaxHeight: 1024, AlignWidth: 16}
	correctSettings(&s, nil)

	w, h := 41, 20
	correctSize(&s, &w, &h)
	assert.Equal(t, 48, w)
	assert.Equal(t, 20, h)
}

func TestCorrectSize_Square(t *testing.T) {
	s := model.PackSettings{MaxWidth: 1024, MaxHeight: 1024, Square: true}
	correctSettings(&s, nil)

	w, h := 30, 70
	correctSize(&s, &w, &h)
	assert.Equal(t, 70, w)
	assert.Equal(t, 70, h)
}

func TestCorrectSize_Idempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	configs := []model.PackSettings{
		{MaxWidth: 512, MaxHeight: 512},
		{MaxWidth: 512, MaxHeight: 512, PowerOfTwo: true},
		{MaxWidth: 512, MaxHeight: 512, AlignWidth: 8},
		{MaxWidth: 512, MaxHeight: 512, Square: true},
		{MaxWidth: 512, MaxHeight: 512, BorderPadding: 2, PowerOfTwo: true},
	}
	for _, s := range configs {
		correctSettings(&s, nil)
		for i := 0; i < 50; i++ {
			w := 1 + r.Intn(400)
			h := 1 + r.Intn(400)
			correctSize(&s, &w, &h)
			w2, h2 := w, h
			correctSize(&s, &w2, &h2)
			assert.Equal(t, w, w2, "width not stable under repeated correction")
			assert.Equal(t, h, h2, "height not stable under repeated correction")
		}
	}
}

func TestGetRunSize_WithinBounds(t *testing.T) {
	s := model.PackSettings{MinWidth: 32, MinHeight: 32, MaxWidth: 256, MaxHeight: 256}
	correctSettings(&s, nil)

	for _, area := range []int{1, 100, 10_000, 65_536, 1_000_000} {
		w, h := getRunSize(&s, area)
		assert.GreaterOrEqual(t, w, s.MinWidth, "area %d", area)
		assert.GreaterOrEqual(t, h, s.MinHeight, "area %d", area)
		assert.LessOrEqual(t, w, s.MaxWidth, "area %d", area)
		assert.LessOrEqual(t, h, s.MaxHeight, "area %d", area)
	}
}

// ─── Packing scenarios ────────────────────────────────────

func TestPackEngine_EmptyInput(t *testing.T) {
	sheets := New(testSettings()).Pack(nil)
	assert.Len(t, sheets, 0)
}

func TestPackEngine_SingleFit(t *testing.T) {
	sheets := New(testSettings()).Pack([]model.PackSize{{ID: 0, Width: 10, Height: 20}})

	require.Len(t, sheets, 1)
	require.Len(t, sheets[0].Placements, 1)
	p := sheets[0].Placements[0]
	assert.Equal(t, 0, p.Size.ID)
	assert.Equal(t, 0, p.X)
	assert.Equal(t, 0, p.Y)
	assert.False(t, p.Rotated)
	assert.Equal(t, 10, sheets[0].Width)
	assert.Equal(t, 20, sheets[0].Height)
}

func TestPackEngine_ForcedRotation(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 10, MaxHeight: 40, AllowRotate: true}
	sheets := New(settings).Pack([]model.PackSize{{ID: 0, Width: 30, Height: 5}})

	require.Len(t, sheets, 1)
	require.Len(t, sheets[0].Placements, 1)
	p := sheets[0].Placements[0]
	assert.True(t, p.Rotated)
	assert.Equal(t, 5, p.PlacedWidth())
	assert.Equal(t, 30, p.PlacedHeight())
}

func TestPackEngine_PowerOfTwo(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 64, MaxHeight: 64, PowerOfTwo: true}
	sizes := []model.PackSize{
		{ID: 0, Width: 10, Height: 10},
		{ID: 1, Width: 10, Height: 10},
		{ID: 2, Width: 10, Height: 10},
		{ID: 3, Width: 10, Height: 10},
	}
	sheets := New(settings).Pack(sizes)

	require.Len(t, sheets, 1)
	assert.Equal(t, 32, sheets[0].Width)
	assert.Equal(t, 32, sheets[0].Height)
	assert.Len(t, sheets[0].Placements, 4)
}

func TestPackEngine_MultiSheet(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 100, MaxHeight: 100}
	sizes := make([]model.PackSize, 9)
	for i := range sizes {
		sizes[i] = model.PackSize{ID: i, Width: 50, Height: 50}
	}
	sheets := New(settings).Pack(sizes)

	assert.LessOrEqual(t, len(sheets), 3)
	assert.Equal(t, 9, placedCount(sheets))
	seen := make(map[int]bool)
	for _, sheet := range sheets {
		assert.LessOrEqual(t, sheet.Width, 100)
		assert.LessOrEqual(t, sheet.Height, 100)
		for _, p := range sheet.Placements {
			assert.False(t, seen[p.Size.ID], "rectangle %d placed twice", p.Size.ID)
			seen[p.Size.ID] = true
		}
	}
}

func TestPackEngine_SheetCap(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 100, MaxHeight: 100, MaxSheets: 1}
	sizes := make([]model.PackSize, 9)
	for i := range sizes {
		sizes[i] = model.PackSize{ID: i, Width: 50, Height: 50}
	}
	sheets := New(settings).Pack(sizes)

	require.Len(t, sheets, 1)
	assert.LessOrEqual(t, len(sheets[0].Placements), 4)
	assert.NotEmpty(t, sheets[0].Placements)
}

func TestPackEngine_OversizeDrop(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 100, MaxHeight: 100}
	sheets := New(settings).Pack([]model.PackSize{
		{ID: 0, Width: 10, Height: 10},
		{ID: 1, Width: 500, Height: 500},
	})

	require.Len(t, sheets, 1)
	require.Len(t, sheets[0].Placements, 1)
	assert.Equal(t, 0, sheets[0].Placements[0].Size.ID)
}

func TestPackEngine_Deterministic(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	sizes := make([]model.PackSize, 30)
	for i := range sizes {
		sizes[i] = model.PackSize{ID: i, Width: 1 + r.Intn(40), Height: 1 + r.Intn(40)}
	}
	settings := model.PackSettings{MaxWidth: 128, MaxHeight: 128, AllowRotate: true}

	first := New(settings).Pack(sizes)
	second := New(settings).Pack(sizes)
	assert.Equal(t, first, second)
}

func TestPackEngine_PinnedMethod(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 128, MaxHeight: 128, Method: model.MethodBottomLeftRule}
	sizes := []model.PackSize{
		{ID: 0, Width: 30, Height: 20},
		{ID: 1, Width: 20, Height: 20},
		{ID: 2, Width: 40, Height: 10},
	}
	sheets := New(settings).Pack(sizes)
	require.NotEmpty(t, sheets)
	assert.Equal(t, 3, placedCount(sheets))
}

// ─── Invariants under padding and rotation ────────────────────────────────────

func TestPackEngine_PaddingInvariants(t *testing.T) {
	const (
		maxSize       = 128
		borderPadding = 2
		shapePadding  = 1
	)
	settings := model.PackSettings{
		MaxWidth:      maxSize,
		MaxHeight:     maxSize,
		BorderPadding: borderPadding,
		ShapePadding:  shapePadding,
		AllowRotate:   true,
	}
	r := rand.New(rand.NewSource(0xbeef))
	sizes := make([]model.PackSize, 24)
	for i := range sizes {
		sizes[i] = model.PackSize{ID: i, Width: 1 + r.Intn(30), Height: 1 + r.Intn(30)}
	}

	sheets := New(settings).Pack(sizes)
	require.NotEmpty(t, sheets)

	placed := make(map[int]model.Placement)
	for _, sheet := range sheets {
		assert.LessOrEqual(t, sheet.Width, maxSize)
		assert.LessOrEqual(t, sheet.Height, maxSize)

		for _, p := range sheet.Placements {
			_, dup := placed[p.Size.ID]
			assert.False(t, dup, "rectangle %d placed twice", p.Size.ID)
			placed[p.Size.ID] = p

			assert.GreaterOrEqual(t, p.X, borderPadding)
			assert.GreaterOrEqual(t, p.Y, borderPadding)
			assert.LessOrEqual(t, p.X+p.PlacedWidth(), sheet.Width-borderPadding)
			assert.LessOrEqual(t, p.Y+p.PlacedHeight(), sheet.Height-borderPadding)

			if p.Rotated {
				assert.Equal(t, p.Size.Height, p.PlacedWidth())
				assert.Equal(t, p.Size.Width, p.PlacedHeight())
			}
		}

		// Non-overlap with each rectangle expanded by the shape padding
		// on its right and bottom sides.
		for i := range sheet.Placements {
			for j := i + 1; j < len(sheet.Placements); j++ {
				a, b := sheet.Placements[i], sheet.Placements[j]
				aw, ah := a.PlacedWidth()+shapePadding, a.PlacedHeight()+shapePadding
				bw, bh := b.PlacedWidth()+shapePadding, b.PlacedHeight()+shapePadding
				separate := a.X+aw <= b.X || b.X+bw <= a.X || a.Y+ah <= b.Y || b.Y+bh <= a.Y
				assert.True(t, separate, "rectangles %d and %d overlap", a.Size.ID, b.Size.ID)
			}
		}
	}
	assert.Len(t, placed, len(sizes), "every accepted rectangle must be placed")
}

func TestPackEngine_SquareSheets(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 256, MaxHeight: 256, Square: true}
	sizes := []model.PackSize{
		{ID: 0, Width: 30, Height: 70},
		{ID: 1, Width: 25, Height: 25},
	}
	sheets := New(settings).Pack(sizes)
	require.NotEmpty(t, sheets)
	for _, sheet := range sheets {
		assert.Equal(t, sheet.Width, sheet.Height)
	}
	assert.Equal(t, 2, placedCount(sheets))
}

func TestPackEngine_AlignedWidth(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 256, MaxHeight: 256, AlignWidth: 16}
	sizes := []model.PackSize{
		{ID: 0, Width: 33, Height: 21},
		{ID: 1, Width: 14, Height: 60},
	}
	sheets := New(settings).Pack(sizes)
	require.NotEmpty(t, sheets)
	for _, sheet := range sheets {
		assert.Zero(t, sheet.Width%16, "sheet width %d not aligned", sheet.Width)
	}
	assert.Equal(t, 2, placedCount(sheets))
}

// ─── Sprite resolution ────────────────────────────────────

func TestPackSprites_ResolvesAndReportsDropped(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 100, MaxHeight: 100}
	sprites := []model.Sprite{
		model.NewSprite("ok", 40, 40),
		model.NewSprite("huge", 900, 900),
	}
	result := New(settings).PackSprites(sprites)

	require.Len(t, result.Sheets, 1)
	require.Len(t, result.Sheets[0].Sprites, 1)
	assert.Equal(t, "ok", result.Sheets[0].Sprites[0].Sprite.Name)
	require.Len(t, result.Dropped, 1)
	assert.Equal(t, "huge", result.Dropped[0].Name)
	assert.Equal(t, 1, result.PlacedCount())
}

func TestPackSprites_SheetCapReportsClipped(t *testing.T) {
	settings := model.PackSettings{MaxWidth: 100, MaxHeight: 100, MaxSheets: 1}
	sprites := make([]model.Sprite, 9)
	for i := range sprites {
		sprites[i] = model.NewSprite("s", 50, 50)
	}
	result := New(settings).PackSprites(sprites)

	require.Len(t, result.Sheets, 1)
	assert.Equal(t, len(sprites), result.PlacedCount()+len(result.Dropped))
	assert.NotEmpty(t, result.Dropped)
}

func TestPackSprites_Empty(t *testing.T) {
	result := New(testSettings()).PackSprites(nil)
	assert.Len(t, result.Sheets, 0)
	assert.Len(t, result.Dropped, 0)
}
