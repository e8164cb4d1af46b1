package analysis

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"sort"

	"github.com/go-pdf/fpdf"
)

// compositePanels is the preferred panel order for the graphical
// abstract; missing artifacts are skipped and the grid compacts.
var compositePanels = []string{
	"publication_timeline",
	"keyword_frequency",
	"metadata_completeness",
	"pca_2d_scatter",
	"citation_histogram",
	"venue_distribution",
}

// writeGraphicalAbstract tiles up to six rendered chart PNGs into a
// single 3x2 composite image.
func writeGraphicalAbstract(artifacts map[string]string, path string) error {
	var panels []image.Image
	for _, name := range compositePanels {
		artifactPath, ok := artifacts[name]
		if !ok {
			continue
		}
		img, err := readPNG(artifactPath)
		if err != nil {
			continue
		}
		panels = append(panels, img)
		if len(panels) == 6 {
			break
		}
	}
	if len(panels) == 0 {
		return fmt.Errorf("%w: no chart panels available", ErrInsufficientData)
	}

	cols := 3
	rows := (len(panels) + cols - 1) / cols
	cellW, cellH := 0, 0
	for _, img := range panels {
		if w := img.Bounds().Dx(); w > cellW {
			cellW = w
		}
		if h := img.Bounds().Dy(); h > cellH {
			cellH = h
		}
	}

	composite := image.NewRGBA(image.Rect(0, 0, cols*cellW, rows*cellH))
	draw.Draw(composite, composite.Bounds(), image.White, image.Point{}, draw.Src)
	for i, img := range panels {
		x := (i % cols) * cellW
		y := (i / cols) * cellH
		rect := image.Rect(x, y, x+img.Bounds().Dx(), y+img.Bounds().Dy())
		draw.Draw(composite, rect, img, img.Bounds().Min, draw.Src)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, composite); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

// writeReportPDF assembles the multi-page PDF report: a title page plus
// one page per rendered PNG artifact. Best effort; individual pages
// that fail to embed are skipped.
func writeReportPDF(report summaryReport, artifacts map[string]string, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Literature Meta-Analysis Report", false)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 40, "Literature Meta-Analysis Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 10, fmt.Sprintf("Papers analyzed: %d", report.TotalPapers), "", 1, "C", false, 0, "")
	if report.YearRange[0] != 0 {
		pdf.CellFormat(0, 10, fmt.Sprintf("Years: %d-%d", report.YearRange[0], report.YearRange[1]), "", 1, "C", false, 0, "")
	}

	names := make([]string, 0, len(artifacts))
	for name, artifactPath := range artifacts {
		if isPNG(artifactPath) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "B", 14)
		pdf.CellFormat(0, 12, name, "", 1, "L", false, 0, "")
		pdf.ImageOptions(artifacts[name], 10, 30, 190, 0, false,
			fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
	return pdf.OutputFileAndClose(path)
}

func isPNG(path string) bool {
	return len(path) > 4 && path[len(path)-4:] == ".png"
}
