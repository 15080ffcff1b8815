// Package models defines the domain model shared by the catalogue loader,
// the sync engine and the persistence layer.
package models

import (
	"errors"
	"fmt"
)

// ShapeKind discriminates the two region shape variants.
type ShapeKind int

const (
	// ShapeCircular covers a circle described by a diameter.
	ShapeCircular ShapeKind = iota
	// ShapeRectangular covers a box described by a width and a height.
	ShapeRectangular
)

// Shape describes the sky area covered by a region. Exactly one variant is
// populated; Kind tells which. All sizes are in degrees.
type Shape struct {
	Kind   ShapeKind
	Diam   float64 // circular only
	Width  float64 // rectangular only
	Height float64 // rectangular only
}

// CircularShape builds the circular variant from a diameter in degrees.
func CircularShape(diamDeg float64) Shape {
	return Shape{Kind: ShapeCircular, Diam: diamDeg}
}

// RectangularShape builds the rectangular variant from a width and a height
// in degrees.
func RectangularShape(widthDeg, heightDeg float64) Shape {
	return Shape{Kind: ShapeRectangular, Width: widthDeg, Height: heightDeg}
}

// Region is a named sky area whose contained sources are synchronized as a
// unit.
//
// Serial is assigned by the store on first save and stays nil until then;
// once assigned it anchors every source row belonging to the region.
// Properties carries type-specific attributes (e.g. open-cluster
// classification flags) persisted opaquely as JSON.
type Region struct {
	Name       string
	RA         float64 // right ascension, degrees
	Dec        float64 // declination, degrees
	Shape      Shape
	Serial     *int64
	Properties map[string]any
}

// NewRegion validates and builds a Region.
func NewRegion(name string, ra, dec float64, shape Shape) (Region, error) {
	if name == "" {
		return Region{}, errors.New("region name must not be empty")
	}
	switch shape.Kind {
	case ShapeCircular:
		if shape.Diam <= 0 {
			return Region{}, fmt.Errorf("region %q: diameter must be positive", name)
		}
	case ShapeRectangular:
		if shape.Width <= 0 || shape.Height <= 0 {
			return Region{}, fmt.Errorf("region %q: width and height must be positive", name)
		}
	default:
		return Region{}, fmt.Errorf("region %q: unknown shape kind %d", name, shape.Kind)
	}
	return Region{Name: name, RA: ra, Dec: dec, Shape: shape}, nil
}

// String returns the region name, matching how regions are logged.
func (r Region) String() string {
	return r.Name
}
