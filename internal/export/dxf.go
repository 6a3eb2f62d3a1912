package export

import (
	"fmt"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"

	"github.com/atlaspack/atlaspack/internal/model"
)

// sheetGap is the horizontal spacing between sheets in the drawing.
const sheetGap = 64.0

// ExportDXF writes the packing result as a DXF drawing. Sheets are laid
// out side by side on a SHEETS layer, with each placed sprite drawn as a
// rectangle on a SPRITES layer. Coordinates are in pixels.
func ExportDXF(path string, result model.AtlasResult) error {
	if len(result.Sheets) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	d := dxf.NewDrawing()

	if _, err := d.AddLayer("SHEETS", color.White, dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("failed to create SHEETS layer: %w", err)
	}

	offsetX := 0.0
	for _, sheet := range result.Sheets {
		if err := drawRect(d, offsetX, 0, float64(sheet.Width), float64(sheet.Height)); err != nil {
			return err
		}
		offsetX += float64(sheet.Width) + sheetGap
	}

	if _, err := d.AddLayer("SPRITES", color.Cyan, dxf.DefaultLineType, true); err != nil {
		return fmt.Errorf("failed to create SPRITES layer: %w", err)
	}

	offsetX = 0.0
	for _, sheet := range result.Sheets {
		for _, p := range sheet.Sprites {
			if err := drawRect(d,
				offsetX+float64(p.X), float64(p.Y),
				float64(p.PlacedWidth()), float64(p.PlacedHeight())); err != nil {
				return err
			}
		}
		offsetX += float64(sheet.Width) + sheetGap
	}

	if err := d.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write DXF file: %w", err)
	}
	return nil
}

// drawRect adds the four edges of a rectangle to the current layer.
func drawRect(d *drawing.Drawing, x, y, w, h float64) error {
	edges := [4][4]float64{
		{x, y, x + w, y},
		{x + w, y, x + w, y + h},
		{x + w, y + h, x, y + h},
		{x, y + h, x, y},
	}
	for _, e := range edges {
		if _, err := d.Line(e[0], e[1], 0, e[2], e[3], 0); err != nil {
			return fmt.Errorf("failed to draw rectangle edge: %w", err)
		}
	}
	return nil
}
