/*
 * IECPrint - Page layout and BMP output.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package mps803

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Paper the rendered job is laid out on.
type Paper struct {
	DPI    int
	Width  float64 // Inches.
	Height float64 // Inches.
}

// Letter paper at 300 dots per inch.
func DefaultPaper() Paper {
	return Paper{DPI: 300, Width: 8.5, Height: 11}
}

func (p Paper) pixels() (int, int) {
	return int(p.Width * float64(p.DPI)), int(p.Height * float64(p.DPI))
}

func blank(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Gray{Y: bg}), image.Point{}, draw.Src)
	return img
}

// Lay image out on pages. Tall banners are scaled to the page width and
// cut into pages, anything else is scaled to fit one page and centered.
func Layout(src *image.Gray, paper Paper) []*image.Gray {
	pw, ph := paper.pixels()
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	if sw == 0 || sh == 0 {
		return []*image.Gray{blank(1, 1)}
	}

	banner := sh > sw*2
	fullHeight := int(float64(sh) * float64(pw) / float64(sw))
	if banner && fullHeight > ph {
		scaled := image.NewGray(image.Rect(0, 0, pw, fullHeight))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
		pages := []*image.Gray{}
		for top := 0; top < fullHeight; top += ph {
			page := blank(pw, ph)
			part := image.Rect(0, top, pw, min(top+ph, fullHeight))
			draw.Draw(page, image.Rect(0, 0, pw, part.Dy()), scaled, part.Min, draw.Src)
			pages = append(pages, page)
		}
		return pages
	}

	scale := min(float64(pw)/float64(sw), float64(ph)/float64(sh))
	nw, nh := int(float64(sw)*scale), int(float64(sh)*scale)
	page := blank(pw, ph)
	left, top := (pw-nw)/2, (ph-nh)/2
	draw.NearestNeighbor.Scale(page, image.Rect(left, top, left+nw, top+nh), src, src.Bounds(), draw.Src, nil)
	return []*image.Gray{page}
}

// Write pages as BMP files. One page goes to name, more get a _pageN
// suffix. Returns the files written.
func WriteBMP(name string, pages []*image.Gray) ([]string, error) {
	files := []string{}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	for i, page := range pages {
		path := name
		if len(pages) > 1 {
			path = fmt.Sprintf("%s_page%d.bmp", base, i+1)
		}
		if err := writeFile(path, page); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeFile(path string, img image.Image) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := bmp.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return file.Close()
}
