// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package debug renders introspection views of a wired stage graph.
// The pipe matrix view mirrors the classic pipeline debugger layout:
// one row per stage in execution order, one column per pipe, with
// produced pipes drawn as solid cells and consumed pipes as hollow ones.
package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/rp/stage"
)

// Cell geometry of the unscaled matrix, in pixels.
const (
	cellSize = 12
	cellGap  = 2
)

// Matrix palette.
var (
	matrixBG   = color.NRGBA{30, 30, 34, 255}
	gridColor  = color.NRGBA{48, 48, 54, 255}
	produceCol = color.NRGBA{105, 190, 120, 255}
	consumeCol = color.NRGBA{95, 145, 210, 255}
	prevCol    = color.NRGBA{200, 160, 90, 255}
	ruleColor  = color.NRGBA{70, 70, 78, 255}
)

// PipeMatrix is the graph summary behind the rendered view. Rows follow
// execution order, columns are pipes sorted by first production.
type PipeMatrix struct {
	Stages []string
	Pipes  []string

	// Produced[row][col] and Consumed[row][col] mark cell roles.
	Produced [][]bool
	Consumed [][]bool

	// Previous marks previous-frame consumptions.
	Previous [][]bool
}

// BuildPipeMatrix collects the pipe matrix of a set-up stage manager.
func BuildPipeMatrix(m *stage.Manager) *PipeMatrix {
	order := m.Order()

	var pipes []string
	pipeCol := make(map[string]int)
	addPipe := func(name string) int {
		if col, ok := pipeCol[name]; ok {
			return col
		}
		pipeCol[name] = len(pipes)
		pipes = append(pipes, name)
		return len(pipes) - 1
	}
	for _, st := range order {
		for _, name := range st.ProducedPipes() {
			addPipe(name)
		}
	}
	// Pipes that are only consumed (missing producers) still get a column.
	var dangling []string
	for _, st := range order {
		for _, name := range st.RequiredPipes() {
			base := strings.TrimPrefix(name, stage.PreviousFramePrefix)
			base = strings.TrimPrefix(base, stage.FuturePrefix)
			if _, ok := pipeCol[base]; !ok {
				dangling = append(dangling, base)
			}
		}
	}
	sort.Strings(dangling)
	for _, name := range dangling {
		addPipe(name)
	}

	pm := &PipeMatrix{Pipes: pipes}
	for _, st := range order {
		row := len(pm.Stages)
		pm.Stages = append(pm.Stages, st.StageID())
		pm.Produced = append(pm.Produced, make([]bool, len(pipes)))
		pm.Consumed = append(pm.Consumed, make([]bool, len(pipes)))
		pm.Previous = append(pm.Previous, make([]bool, len(pipes)))

		for _, name := range st.ProducedPipes() {
			pm.Produced[row][pipeCol[name]] = true
		}
		for _, name := range st.RequiredPipes() {
			switch {
			case strings.HasPrefix(name, stage.PreviousFramePrefix):
				pm.Previous[row][pipeCol[strings.TrimPrefix(name, stage.PreviousFramePrefix)]] = true
			case strings.HasPrefix(name, stage.FuturePrefix):
				pm.Consumed[row][pipeCol[strings.TrimPrefix(name, stage.FuturePrefix)]] = true
			default:
				pm.Consumed[row][pipeCol[name]] = true
			}
		}
	}
	return pm
}

// Render draws the pipe matrix at the given integer scale. Scale 1 draws
// 12 px cells; larger scales resample with Catmull-Rom for crisp output.
func (pm *PipeMatrix) Render(scale int) image.Image {
	if scale < 1 {
		scale = 1
	}
	cols := len(pm.Pipes)
	rows := len(pm.Stages)
	if cols == 0 {
		cols = 1
	}
	if rows == 0 {
		rows = 1
	}

	w := cols*(cellSize+cellGap) + cellGap
	h := rows*(cellSize+cellGap) + cellGap
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill(img, img.Bounds(), matrixBG)

	for row := range pm.Stages {
		y := cellGap + row*(cellSize+cellGap)
		fill(img, image.Rect(0, y+cellSize, w, y+cellSize+1), ruleColor)
		for col := range pm.Pipes {
			x := cellGap + col*(cellSize+cellGap)
			cell := image.Rect(x, y, x+cellSize, y+cellSize)
			switch {
			case pm.Produced[row][col]:
				fill(img, cell, produceCol)
			case pm.Previous[row][col]:
				outline(img, cell, prevCol)
			case pm.Consumed[row][col]:
				outline(img, cell, consumeCol)
			default:
				outline(img, cell, gridColor)
			}
		}
	}

	if scale == 1 {
		return img
	}
	scaled := image.NewNRGBA(image.Rect(0, 0, w*scale, h*scale))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), img, img.Bounds(), xdraw.Over, nil)
	return scaled
}

// SavePNG renders the matrix and writes it as a PNG file.
func (pm *PipeMatrix) SavePNG(path string, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("debug: create %s: %w", path, err)
	}
	if err := png.Encode(f, pm.Render(scale)); err != nil {
		f.Close()
		return fmt.Errorf("debug: encode %s: %w", path, err)
	}
	return f.Close()
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

func outline(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), c)
	fill(img, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), c)
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), c)
	fill(img, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), c)
}
