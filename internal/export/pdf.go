// Package export provides functionality for exporting atlas packing
// results to various file formats.
package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/atlaspack/atlaspack/internal/model"
)

// spriteColor represents an RGB color for a placed sprite.
type spriteColor struct {
	R, G, B int
}

var spriteColors = []spriteColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	legendHeight = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// ExportPDF generates a PDF document containing the packing result.
// Each sheet is rendered on its own page with a layout diagram, followed
// by a summary page with overall statistics.
func ExportPDF(path string, result model.AtlasResult, settings model.PackSettings) error {
	if len(result.Sheets) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for i, sheet := range result.Sheets {
		pdf.AddPage()
		renderSheetPage(pdf, sheet, settings, i+1)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, result, settings)

	return pdf.OutputFileAndClose(path)
}

// renderSheetPage draws a single sheet on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, sheet model.AtlasSheet, settings model.PackSettings, sheetNum int) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d (%d x %d px)", sheetNum, sheet.Width, sheet.Height)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Sprites: %d | Used area: %d px² | Total area: %d px² | Efficiency: %.1f%%",
		len(sheet.Sprites), sheet.UsedArea(), sheet.TotalArea(), sheet.Efficiency())
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom - legendHeight

	scaleX := drawWidth / float64(sheet.Width)
	scaleY := drawHeight / float64(sheet.Height)
	scale := math.Min(scaleX, scaleY)

	canvasW := float64(sheet.Width) * scale
	canvasH := float64(sheet.Height) * scale

	offsetX := marginLeft + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	// Sheet background
	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	drawBorderPadding(pdf, sheet, settings, scale, offsetX, offsetY, canvasW, canvasH)

	for i, p := range sheet.Sprites {
		col := spriteColors[i%len(spriteColors)]
		pw := float64(p.PlacedWidth()) * scale
		ph := float64(p.PlacedHeight()) * scale
		px := offsetX + float64(p.X)*scale
		py := offsetY + float64(p.Y)*scale

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.3)
		pdf.Rect(px, py, pw, ph, "FD")

		if pw > 15 && ph > 8 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)

			name := p.Sprite.Name
			dims := fmt.Sprintf("%dx%d", p.Sprite.Width, p.Sprite.Height)

			nameW := pdf.GetStringWidth(name)
			dimsW := pdf.GetStringWidth(dims)

			if nameW < pw-2 {
				pdf.SetXY(px+(pw-nameW)/2, py+ph/2-4)
				pdf.CellFormat(nameW, 4, name, "", 0, "C", false, 0, "")
			}
			if ph > 14 && dimsW < pw-2 {
				pdf.SetXY(px+(pw-dimsW)/2, py+ph/2)
				pdf.CellFormat(dimsW, 4, dims, "", 0, "C", false, 0, "")
			}
		}
	}

	drawDimensionAnnotations(pdf, sheet, offsetX, offsetY, canvasW, canvasH)
	drawSpriteLegend(pdf, sheet, offsetY+canvasH+5)
}

// drawBorderPadding hatches the border margin no sprite may occupy.
func drawBorderPadding(pdf *fpdf.Fpdf, sheet model.AtlasSheet, settings model.PackSettings, scale, offsetX, offsetY, canvasW, canvasH float64) {
	if settings.BorderPadding <= 0 {
		return
	}
	pad := float64(settings.BorderPadding) * scale
	zones := [][4]float64{
		{offsetX, offsetY, canvasW, pad},
		{offsetX, offsetY + canvasH - pad, canvasW, pad},
		{offsetX, offsetY, pad, canvasH},
		{offsetX + canvasW - pad, offsetY, pad, canvasH},
	}
	pdf.SetFillColor(255, 220, 220)
	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.15)
	for _, z := range zones {
		pdf.Rect(z[0], z[1], z[2], z[3], "F")
		drawHatchPattern(pdf, z[0], z[1], z[2], z[3])
	}
}

// drawHatchPattern draws diagonal lines inside a rectangle to mark
// reserved zones.
func drawHatchPattern(pdf *fpdf.Fpdf, x, y, w, h float64) {
	pdf.SetDrawColor(200, 0, 0)
	pdf.SetLineWidth(0.15)

	spacing := 4.0
	maxDist := w + h
	for d := spacing; d < maxDist; d += spacing {
		x1 := x + math.Max(0, d-h)
		y1 := y + math.Min(h, d)
		x2 := x + math.Min(w, d)
		y2 := y + math.Max(0, d-w)
		pdf.Line(x1, y1, x2, y2)
	}
}

// drawDimensionAnnotations adds width and height labels outside the
// sheet rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, sheet model.AtlasSheet, offsetX, offsetY, canvasW, canvasH float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%d px", sheet.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(offsetX+(canvasW-wLabelW)/2, offsetY+canvasH+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	heightLabel := fmt.Sprintf("%d px", sheet.Height)
	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvasH/2)
	hLabelW := pdf.GetStringWidth(heightLabel)
	pdf.SetXY(offsetX-3-hLabelW/2, offsetY+canvasH/2-2)
	pdf.CellFormat(hLabelW, 4, heightLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawSpriteLegend renders a compact legend of placed sprites at the
// bottom of the sheet page.
func drawSpriteLegend(pdf *fpdf.Fpdf, sheet model.AtlasSheet, startY float64) {
	if len(sheet.Sprites) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Sprites placed:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range sheet.Sprites {
		col := spriteColors[i%len(spriteColors)]
		label := fmt.Sprintf("%s (%dx%d)", p.Sprite.Name, p.Sprite.Width, p.Sprite.Height)
		if p.Rotated {
			label += " R"
		}
		labelW := pdf.GetStringWidth(label) + 6

		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final summary page with overall
// statistics.
func renderSummaryPage(pdf *fpdf.Fpdf, result model.AtlasResult, settings model.PackSettings) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Atlas Packing Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Overall Statistics", "", 0, "L", false, 0, "")
	y += 9

	summaryItems := []struct {
		label string
		value string
	}{
		{"Total Sheets", fmt.Sprintf("%d", len(result.Sheets))},
		{"Overall Efficiency", fmt.Sprintf("%.1f%%", result.TotalEfficiency())},
		{"Sprites Placed", fmt.Sprintf("%d", result.PlacedCount())},
		{"Dropped Sprites", fmt.Sprintf("%d", len(result.Dropped))},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Sheet Breakdown", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{20, 50, 40, 40, 60}
	headers := []string{"Sheet", "Dimensions", "Sprites", "Efficiency", "Used / Total Area"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], 6, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += 6

	pdf.SetFont("Helvetica", "", 9)
	for i, sheet := range result.Sheets {
		xPos = marginLeft
		rowData := []string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d x %d px", sheet.Width, sheet.Height),
			fmt.Sprintf("%d", len(sheet.Sprites)),
			fmt.Sprintf("%.1f%%", sheet.Efficiency()),
			fmt.Sprintf("%d / %d px²", sheet.UsedArea(), sheet.TotalArea()),
		}

		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], 6, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += 6
	}

	if len(result.Dropped) > 0 {
		y += 8
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(200, 7, "WARNING: Dropped Sprites", "", 0, "L", false, 0, "")
		y += 8

		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(0, 0, 0)
		for _, sprite := range result.Dropped {
			pdf.SetXY(marginLeft+5, y)
			text := fmt.Sprintf("- %s: %d x %d px", sprite.Name, sprite.Width, sprite.Height)
			pdf.CellFormat(200, 5, text, "", 0, "L", false, 0, "")
			y += 5
		}
	}

	y += 8
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Pack Settings", "", 0, "L", false, 0, "")
	y += 9

	settingsItems := []struct {
		label string
		value string
	}{
		{"Max Sheet Size", fmt.Sprintf("%d x %d px", settings.MaxWidth, settings.MaxHeight)},
		{"Border Padding", fmt.Sprintf("%d px", settings.BorderPadding)},
		{"Shape Padding", fmt.Sprintf("%d px", settings.ShapePadding)},
		{"Rotation", fmt.Sprintf("%t", settings.AllowRotate)},
		{"Power of Two", fmt.Sprintf("%t", settings.PowerOfTwo)},
		{"Method", settings.Method.String()},
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range settingsItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(50, 5, item.label+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 5, item.value, "", 0, "L", false, 0, "")
		y += 5
	}

	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 4, "Generated by AtlasPack", "", 0, "C", false, 0, "")
}

// labelFontSize returns an appropriate font size based on the rectangle
// dimensions.
func labelFontSize(w, h float64) float64 {
	minDim := math.Min(w, h)
	switch {
	case minDim > 40:
		return 8
	case minDim > 20:
		return 7
	default:
		return 6
	}
}
