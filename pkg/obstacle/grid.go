// Package obstacle holds the static world obstacles and the uniform grid the collision classifier
// queries. A Grid is built once at world load and never mutated afterwards, so a single Grid may be
// shared by any number of engines and goroutines.
package obstacle

import (
	"errors"
	"fmt"
	"math"

	"aerosim/pkg/flight"
)

// DefaultCellSize is the grid cell edge in meters.
const DefaultCellSize = 100.0

// maxCellsPerObstacle bounds the cells one footprint is registered in. Larger footprints go to a
// list every lookup visits.
const maxCellsPerObstacle = 64

// ErrInvalidCellSize is returned by NewGrid for a non-positive or non-finite cell size.
var ErrInvalidCellSize = errors.New("cell size must be positive")

// Obstacle is a named static structure.
type Obstacle struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	flight.Footprint
}

// Top returns the roof elevation.
func (o *Obstacle) Top() float64 { return o.BaseElevation + o.Height }

type cellKey struct{ x, z int }

// Grid maps (floor(x/cellSize), floor(z/cellSize)) to the obstacles whose footprint overlaps that cell.
type Grid struct {
	cellSize  float64
	cells     map[cellKey][]int
	wide      []int
	obstacles []Obstacle
}

// NewGrid indexes obstacles. The slice is copied.
func NewGrid(cellSize float64, obstacles []Obstacle) (*Grid, error) {
	if !(cellSize > 0) || math.IsInf(cellSize, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCellSize, cellSize)
	}

	g := &Grid{
		cellSize:  cellSize,
		cells:     make(map[cellKey][]int),
		obstacles: make([]Obstacle, len(obstacles)),
	}
	copy(g.obstacles, obstacles)

	for i := range g.obstacles {
		o := &g.obstacles[i]
		if g.span(o) > maxCellsPerObstacle {
			g.wide = append(g.wide, i)
			continue
		}
		minX, minZ := g.key(o.X-o.HalfWidth, o.Z-o.HalfDepth)
		maxX, maxZ := g.key(o.X+o.HalfWidth, o.Z+o.HalfDepth)
		for cx := minX; cx <= maxX; cx++ {
			for cz := minZ; cz <= maxZ; cz++ {
				k := cellKey{cx, cz}
				g.cells[k] = append(g.cells[k], i)
			}
		}
	}
	return g, nil
}

// span counts the cells a footprint overlaps. It is computed in floating point so a huge or
// far-away footprint cannot overflow the integer keys.
func (g *Grid) span(o *Obstacle) float64 {
	nx := math.Floor((o.X+o.HalfWidth)/g.cellSize) - math.Floor((o.X-o.HalfWidth)/g.cellSize) + 1
	nz := math.Floor((o.Z+o.HalfDepth)/g.cellSize) - math.Floor((o.Z-o.HalfDepth)/g.cellSize) + 1
	n := nx * nz
	if math.IsNaN(n) || math.Abs(o.X)/g.cellSize > math.MaxInt32 || math.Abs(o.Z)/g.cellSize > math.MaxInt32 {
		return math.Inf(1)
	}
	return n
}

func (g *Grid) key(x, z float64) (cx, cz int) {
	return int(math.Floor(x / g.cellSize)), int(math.Floor(z / g.cellSize))
}

// CellSize returns the cell edge in meters.
func (g *Grid) CellSize() float64 { return g.cellSize }

// Len returns the number of indexed obstacles.
func (g *Grid) Len() int { return len(g.obstacles) }

// Cells returns the number of occupied cells.
func (g *Grid) Cells() int { return len(g.cells) }

// Wide returns the number of obstacles too large to register per cell.
func (g *Grid) Wide() int { return len(g.wide) }

// Obstacles returns a copy of the indexed obstacles in input order.
func (g *Grid) Obstacles() []Obstacle {
	out := make([]Obstacle, len(g.obstacles))
	copy(out, g.obstacles)
	return out
}

// Nearby implements flight.ObstacleIndex. Wide obstacles are visited on every call. An obstacle
// spanning several scanned cells is visited once per cell.
func (g *Grid) Nearby(x, z float64, fn func(flight.Footprint) bool) {
	g.scan(x, z, func(i int) bool {
		return fn(g.obstacles[i].Footprint)
	})
}

// Query returns the wide obstacles and the distinct obstacles registered in the 3x3 neighbourhood
// of (x, z).
func (g *Grid) Query(x, z float64) []Obstacle {
	var out []Obstacle
	seen := make(map[int]struct{})
	g.scan(x, z, func(i int) bool {
		if _, ok := seen[i]; !ok {
			seen[i] = struct{}{}
			out = append(out, g.obstacles[i])
		}
		return true
	})
	return out
}

func (g *Grid) scan(x, z float64, fn func(i int) bool) {
	if g == nil {
		return
	}
	for _, i := range g.wide {
		if !fn(i) {
			return
		}
	}
	if len(g.cells) == 0 {
		return
	}
	ox, oz := g.key(x, z)
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			for _, i := range g.cells[cellKey{ox + dx, oz + dz}] {
				if !fn(i) {
					return
				}
			}
		}
	}
}
