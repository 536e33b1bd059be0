package report

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/bmvandoren/vol2bird/internal/fsutil"
	"github.com/bmvandoren/vol2bird/internal/profile"
)

var (
	speedColor   = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	densityColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

// NewPlot builds a height profile of bird speed and density.
func NewPlot(vp *profile.VerticalProfile) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Vertical profile %s %s %s", vp.Metadata.Source, vp.Metadata.Date, vp.Metadata.Time)
	p.X.Label.Text = "Speed (m/s) / Density (birds/km³)"
	p.Y.Label.Text = "Height (m)"

	speedPts := make(plotter.XYs, 0, vp.Len())
	densityPts := make(plotter.XYs, 0, vp.Len())
	for _, l := range vp.Layers() {
		if profile.Cell(l.Height).Missing() {
			continue
		}
		if !profile.Cell(l.Speed).Missing() {
			speedPts = append(speedPts, plotter.XY{X: l.Speed, Y: l.Height})
		}
		if !profile.Cell(l.Density).Missing() {
			densityPts = append(densityPts, plotter.XY{X: l.Density, Y: l.Height})
		}
	}
	if len(speedPts) == 0 && len(densityPts) == 0 {
		return p, nil
	}

	if len(speedPts) > 0 {
		speedLine, err := plotter.NewLine(speedPts)
		if err != nil {
			return nil, err
		}
		speedLine.Color = speedColor
		speedLine.Width = vg.Points(1.5)
		p.Add(speedLine)
		p.Legend.Add("speed", speedLine)
	}

	if len(densityPts) > 0 {
		densityLine, err := plotter.NewLine(densityPts)
		if err != nil {
			return nil, err
		}
		densityLine.Color = densityColor
		densityLine.Width = vg.Points(1.5)
		p.Add(densityLine)
		p.Legend.Add("density", densityLine)
	}

	p.Add(plotter.NewGrid())
	return p, nil
}

// WritePlotTo renders the profile plot as PNG into w.
func WritePlotTo(w io.Writer, vp *profile.VerticalProfile) error {
	p, err := NewPlot(vp)
	if err != nil {
		return fmt.Errorf("failed to build plot: %w", err)
	}
	wt, err := p.WriterTo(6*vg.Inch, 8*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("failed to create plot writer: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// WritePlot renders the profile plot to a PNG file.
func WritePlot(fsys fsutil.FileSystem, path string, vp *profile.VerticalProfile) error {
	return fsutil.WriteFile(fsys, path, func(w io.Writer) error {
		return WritePlotTo(w, vp)
	})
}
