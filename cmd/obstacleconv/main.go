// Command obstacleconv normalises an obstacle file (.shp or .geojson) into the GeoJSON box form the
// simulator loads, and reports how the obstacles spread over the spatial grid.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"aerosim/pkg/obstacle"
)

func main() {
	inputPath := flag.String("input", "", "Path to input .shp or .geojson file")
	outputPath := flag.String("output", "", "Path to output .geojson file")
	cellSize := flag.Float64("cell-size", obstacle.DefaultCellSize, "Grid cell size in meters for the report")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		flag.Usage()
		log.Fatal("Input and output paths are required")
	}

	if err := run(*inputPath, *outputPath, *cellSize, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(inputPath, outputPath string, cellSize float64, out io.Writer) error {
	obs, err := obstacle.Load(inputPath)
	if err != nil {
		return err
	}

	grid, err := obstacle.NewGrid(cellSize, obs)
	if err != nil {
		return err
	}

	indexed := grid.Obstacles()
	data, err := json.MarshalIndent(obstacle.FeatureCollection(indexed), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(out, "Successfully converted %d obstacles to %s (%d grid cells at %.0fm, %d wide)\n", grid.Len(), outputPath, grid.Cells(), cellSize, grid.Wide())
	if len(indexed) > 0 {
		tallest := indexed[0]
		for _, o := range indexed[1:] {
			if o.Top() > tallest.Top() {
				tallest = o
			}
		}
		fmt.Fprintf(out, "Tallest obstacle: %s (top %.1fm)\n", tallest.ID, tallest.Top())
	}
	return nil
}
