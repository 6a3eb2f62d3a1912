package model

import "math"

// SheetEstimate holds the results of a sheet count estimation.
type SheetEstimate struct {
	TotalSpriteArea   int     `json:"total_sprite_area"`   // Total area of all sprites (px²)
	SheetArea         int     `json:"sheet_area"`          // Area of one sheet (px²)
	SheetsNeededExact float64 `json:"sheets_needed_exact"` // Exact fractional number of sheets
	SheetsNeededMin   int     `json:"sheets_needed_min"`   // Minimum sheets (ceiling of exact)
	SheetsWithWaste   int     `json:"sheets_with_waste"`   // Recommended sheets including waste factor
	WastePercent      float64 `json:"waste_percent"`       // Waste factor applied (e.g., 15 for 15%)
}

// CalculateSheetEstimate computes a lower bound on the number of sheets
// a sprite set will need for a fixed sheet size. Spacing between sprites
// is approximated by growing each sprite by the shape padding; the waste
// factor accounts for the space packing inevitably leaves unused.
func CalculateSheetEstimate(sprites []Sprite, sheetWidth, sheetHeight, shapePadding int, wastePercent float64) SheetEstimate {
	var totalArea int
	for _, sp := range sprites {
		totalArea += (sp.Width + shapePadding) * (sp.Height + shapePadding)
	}

	sheetArea := sheetWidth * sheetHeight
	if sheetArea <= 0 {
		return SheetEstimate{
			TotalSpriteArea: totalArea,
			WastePercent:    wastePercent,
		}
	}

	exact := float64(totalArea) / float64(sheetArea)
	minSheets := int(math.Ceil(exact))

	wasteFactor := 1.0 + wastePercent/100.0
	withWaste := int(math.Ceil(exact * wasteFactor))
	if withWaste < minSheets {
		withWaste = minSheets
	}

	return SheetEstimate{
		TotalSpriteArea:   totalArea,
		SheetArea:         sheetArea,
		SheetsNeededExact: exact,
		SheetsNeededMin:   minSheets,
		SheetsWithWaste:   withWaste,
		WastePercent:      wastePercent,
	}
}
