/*
 * densplot.go, part of ddtrek.
 *
 * Copyright 2024 Biocrystallography, KU Leuven
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package densplot draws diagnostic plots of extracted density
//fragments. The plots are for eyeballing whether a contour level makes
//sense for a given fragment, nothing more.
package densplot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/BiocrystLab/DDtrek/ccp4"
)

// Histogram plots the distribution of density values in m with a
// vertical line at the chosen contour level (in absolute density units,
// not sigmas). The plot is saved as plotname.png.
func Histogram(m *ccp4.Map, contour float64, title, plotname string) error {
	vals := make(plotter.Values, len(m.Grid.Data))
	for i, v := range m.Grid.Data {
		vals[i] = float64(v)
	}
	h, err := plotter.NewHist(vals, 60)
	if err != nil {
		return err
	}
	h.FillColor = color.RGBA{R: 120, G: 160, B: 200, A: 255}
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = "Density"
	p.Y.Label.Text = "Grid points"
	p.Add(h)
	//mark the contour
	_, _, _, ymax := h.DataRange()
	mark, err := plotter.NewLine(plotter.XYs{
		{X: contour, Y: 0},
		{X: contour, Y: ymax},
	})
	if err != nil {
		return err
	}
	mark.LineStyle.Color = color.RGBA{R: 200, A: 255}
	mark.LineStyle.Width = vg.Points(1.5)
	p.Add(mark)
	p.Legend.Add(fmt.Sprintf("contour %.2f", contour), mark)
	filename := fmt.Sprintf("%s.png", plotname)
	return p.Save(5*vg.Inch, 5*vg.Inch, filename)
}
