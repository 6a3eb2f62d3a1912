// AtlasPack packs sprite rectangles onto the smallest set of atlas
// sheets and reports the resulting layout.
//
// Sprites come from a project file or an imported CSV/XLSX list:
//
//	atlaspack -input sprites.csv -out result.json
//	atlaspack -project game.json -pdf layout.pdf
//
// Build:
//
//	go build -o atlaspack ./cmd/atlaspack
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/atlaspack/atlaspack/internal/engine"
	"github.com/atlaspack/atlaspack/internal/export"
	"github.com/atlaspack/atlaspack/internal/importer"
	"github.com/atlaspack/atlaspack/internal/model"
	"github.com/atlaspack/atlaspack/internal/project"
)

func main() {
	var (
		projectPath = flag.String("project", "", "load sprites and settings from a project `file`")
		inputPath   = flag.String("input", "", "import a sprite list from a CSV or XLSX `file`")
		outPath     = flag.String("out", "", "write the packing result as JSON to `file`")
		savePath    = flag.String("save", "", "write the project including the result to `file`")
		pdfPath     = flag.String("pdf", "", "export a layout report PDF to `file`")
		labelsPath  = flag.String("labels", "", "export QR sprite labels PDF to `file`")
		dxfPath     = flag.String("dxf", "", "export the layout as DXF to `file`")
		estimate    = flag.Bool("estimate", false, "print a sheet estimate before packing")
		verbose     = flag.Bool("v", false, "verbose output")

		minWidth      = flag.Int("min-width", 0, "minimum sheet width")
		minHeight     = flag.Int("min-height", 0, "minimum sheet height")
		maxWidth      = flag.Int("max-width", 0, "maximum sheet width (0 = unbounded)")
		maxHeight     = flag.Int("max-height", 0, "maximum sheet height (0 = unbounded)")
		borderPadding = flag.Int("border-padding", 0, "empty margin around each sheet")
		shapePadding  = flag.Int("shape-padding", 0, "minimum spacing between sprites")
		overAllocate  = flag.Int("over-allocate", 0, "extra space added to each sheet dimension")
		rotate        = flag.Bool("rotate", false, "allow 90 degree rotation")
		powerOfTwo    = flag.Bool("pot", false, "constrain sheet sizes to powers of two")
		square        = flag.Bool("square", false, "constrain sheets to be square")
		alignWidth    = flag.Int("align-width", 0, "round sheet widths to a multiple of this value")
		methodName    = flag.String("method", "", "pack method: bssf, blsf, baf, bottomleft, contactpoint (default auto)")
		maxSheets     = flag.Int("max-sheets", 0, "maximum number of sheets (0 = unlimited)")
	)
	flag.Parse()

	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	sprites, settings := loadInput(*projectPath, *inputPath)

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	applyFlagOverrides(&settings, set, flagValues{
		minWidth: *minWidth, minHeight: *minHeight,
		maxWidth: *maxWidth, maxHeight: *maxHeight,
		borderPadding: *borderPadding, shapePadding: *shapePadding,
		overAllocate: *overAllocate,
		rotate:       *rotate, powerOfTwo: *powerOfTwo, square: *square,
		alignWidth: *alignWidth, methodName: *methodName, maxSheets: *maxSheets,
	})

	if len(sprites) == 0 {
		logrus.Fatal("no sprites to pack")
	}

	if *estimate {
		est := model.CalculateSheetEstimate(sprites, settings.MaxWidth, settings.MaxHeight, settings.ShapePadding, 15)
		logrus.Infof("estimate: %d sprites, %d px² total, at least %d sheet(s), %d with %.0f%% waste",
			len(sprites), est.TotalSpriteArea, est.SheetsNeededMin, est.SheetsWithWaste, est.WastePercent)
	}

	logrus.Debugf("packing %d sprites (max %dx%d, method %s)",
		len(sprites), settings.MaxWidth, settings.MaxHeight, settings.Method)

	result := engine.New(settings).PackSprites(sprites)

	logrus.Infof("packed %d/%d sprites onto %d sheet(s), %.1f%% efficiency",
		result.PlacedCount(), len(sprites), len(result.Sheets), result.TotalEfficiency())
	for i, sheet := range result.Sheets {
		logrus.Debugf("sheet %d: %dx%d px, %d sprites, %.1f%%",
			i+1, sheet.Width, sheet.Height, len(sheet.Sprites), sheet.Efficiency())
	}
	for _, sprite := range result.Dropped {
		logrus.Warnf("dropped sprite %q (%dx%d px)", sprite.Name, sprite.Width, sprite.Height)
	}

	writeOutputs(*outPath, *savePath, *pdfPath, *labelsPath, *dxfPath, sprites, settings, result)

	if *outPath == "" && *savePath == "" && *pdfPath == "" && *labelsPath == "" && *dxfPath == "" {
		// No output requested; print the result to stdout.
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logrus.Fatalf("failed to encode result: %v", err)
		}
		fmt.Println(string(data))
	}
}

// loadInput gathers sprites and base settings from the project file, the
// import file, or both.
func loadInput(projectPath, inputPath string) ([]model.Sprite, model.PackSettings) {
	config, err := project.LoadAppConfig(project.DefaultConfigPath())
	if err != nil {
		logrus.Warnf("ignoring unreadable app config: %v", err)
		config = model.DefaultAppConfig()
	}

	settings := model.DefaultSettings()
	config.ApplyToSettings(&settings)
	var sprites []model.Sprite

	if projectPath != "" {
		p, err := project.Load(projectPath)
		if err != nil {
			logrus.Fatalf("failed to load project: %v", err)
		}
		sprites = p.Sprites
		settings = p.Settings
		logrus.Debugf("loaded project %q with %d sprites", p.Name, len(p.Sprites))
	}

	if inputPath != "" {
		imported := importer.Import(inputPath)
		for _, w := range imported.Warnings {
			logrus.Warn(w)
		}
		for _, e := range imported.Errors {
			logrus.Error(e)
		}
		if len(imported.Sprites) == 0 {
			logrus.Fatalf("no sprites imported from %s", inputPath)
		}
		sprites = append(sprites, imported.Sprites...)
		logrus.Debugf("imported %d sprites from %s", len(imported.Sprites), inputPath)
	}

	if projectPath == "" && inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	return sprites, settings
}

type flagValues struct {
	minWidth, minHeight, maxWidth, maxHeight  int
	borderPadding, shapePadding, overAllocate int
	rotate, powerOfTwo, square                bool
	alignWidth, maxSheets                     int
	methodName                                string
}

// applyFlagOverrides copies explicitly set flags over the base settings.
func applyFlagOverrides(s *model.PackSettings, set map[string]bool, v flagValues) {
	if set["min-width"] {
		s.MinWidth = v.minWidth
	}
	if set["min-height"] {
		s.MinHeight = v.minHeight
	}
	if set["max-width"] {
		s.MaxWidth = v.maxWidth
	}
	if set["max-height"] {
		s.MaxHeight = v.maxHeight
	}
	if set["border-padding"] {
		s.BorderPadding = v.borderPadding
	}
	if set["shape-padding"] {
		s.ShapePadding = v.shapePadding
	}
	if set["over-allocate"] {
		s.OverAllocate = v.overAllocate
	}
	if set["rotate"] {
		s.AllowRotate = v.rotate
	}
	if set["pot"] {
		s.PowerOfTwo = v.powerOfTwo
	}
	if set["square"] {
		s.Square = v.square
	}
	if set["align-width"] {
		s.AlignWidth = v.alignWidth
	}
	if set["max-sheets"] {
		s.MaxSheets = v.maxSheets
	}
	if set["method"] {
		method, err := model.ParseMethod(v.methodName)
		if err != nil {
			logrus.Fatalf("invalid -method: %v", err)
		}
		s.Method = method
	}
}

// writeOutputs emits every requested output file.
func writeOutputs(outPath, savePath, pdfPath, labelsPath, dxfPath string, sprites []model.Sprite, settings model.PackSettings, result model.AtlasResult) {
	if outPath != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			logrus.Fatalf("failed to encode result: %v", err)
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			logrus.Fatalf("failed to write result: %v", err)
		}
		logrus.Infof("wrote result to %s", outPath)
	}

	if savePath != "" {
		p := model.Project{
			Name:     "Untitled",
			Sprites:  sprites,
			Settings: settings,
			Result:   &result,
		}
		if err := project.Save(savePath, p); err != nil {
			logrus.Fatalf("failed to save project: %v", err)
		}
		logrus.Infof("saved project to %s", savePath)
	}

	if pdfPath != "" {
		if err := export.ExportPDF(pdfPath, result, settings); err != nil {
			logrus.Fatalf("failed to export PDF: %v", err)
		}
		logrus.Infof("wrote layout report to %s", pdfPath)
	}

	if labelsPath != "" {
		if err := export.ExportLabels(labelsPath, result); err != nil {
			logrus.Fatalf("failed to export labels: %v", err)
		}
		logrus.Infof("wrote labels to %s", labelsPath)
	}

	if dxfPath != "" {
		if err := export.ExportDXF(dxfPath, result); err != nil {
			logrus.Fatalf("failed to export DXF: %v", err)
		}
		logrus.Infof("wrote DXF layout to %s", dxfPath)
	}
}
