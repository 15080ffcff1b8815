// Package catalog loads region definitions from reference catalogues.
//
// The sync engine only consumes the resulting Region values; parsing details
// stay private to this package.
package catalog

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gaiasync/internal/logging"
	"github.com/dmitrijs2005/gaiasync/internal/models"
)

// Loader produces the known regions keyed by name.
type Loader interface {
	Load(ctx context.Context) (map[string]models.Region, error)
}

// OpenClust reads the OPENCLUST catalogue of optically visible open clusters
// (heasarc.gsfc.nasa.gov/W3Browse/star-catalog/openclust.html) from its
// fixed-width clusters.dat file.
type OpenClust struct {
	path string
	log  logging.Logger
}

// NewOpenClust builds a loader for the clusters.dat file at path.
func NewOpenClust(path string, log logging.Logger) *OpenClust {
	return &OpenClust{path: path, log: log}
}

// Load parses the catalogue. Rows that cannot be parsed are logged as
// warnings and skipped; the remaining clusters are returned keyed by name.
func (c *OpenClust) Load(ctx context.Context) (map[string]models.Region, error) {
	c.log.Info(ctx, "loading OpenClust catalogue", "path", c.path)

	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("opening catalogue: %w", err)
	}
	defer f.Close()

	catalogue := make(map[string]models.Region)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		region, err := parseEntry(strings.TrimRight(scanner.Text(), "\r\n"))
		if err != nil {
			c.log.Warn(ctx, "skipping catalogue entry", "cause", err.Error())
			continue
		}
		catalogue[region.Name] = region
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading catalogue: %w", err)
	}

	c.log.Info(ctx, "OpenClust catalogue loaded", "clusters", len(catalogue))
	return catalogue, nil
}

// Byte offsets of the clusters.dat fields, as documented in the catalogue
// ReadMe: name [0:17], RA h/m/s [18:26], Dec sign+d/m/s [27:36],
// G1 class [37:39], apparent diameter in arcmin [40:47].
func parseEntry(entry string) (models.Region, error) {
	name := strings.TrimSpace(field(entry, 0, 17))
	if name == "" {
		return models.Region{}, fmt.Errorf("entry without cluster name: %q", entry)
	}

	raHours, err := parseFixedFloat(field(entry, 18, 20))
	if err != nil {
		return models.Region{}, fmt.Errorf("cluster %s: invalid RA hours: %w", name, err)
	}
	raMin, err := parseFixedFloat(field(entry, 21, 23))
	if err != nil {
		return models.Region{}, fmt.Errorf("cluster %s: invalid RA minutes: %w", name, err)
	}
	raSec, err := parseFixedFloat(field(entry, 24, 26))
	if err != nil {
		return models.Region{}, fmt.Errorf("cluster %s: invalid RA seconds: %w", name, err)
	}
	ra := (raHours + raMin/60.0 + raSec/3600.0) * 15.0

	decDegRaw := strings.TrimSpace(field(entry, 27, 30))
	decDeg, err := parseFixedFloat(decDegRaw)
	if err != nil {
		return models.Region{}, fmt.Errorf("cluster %s: invalid Dec degrees: %w", name, err)
	}
	decMin, err := parseFixedFloat(field(entry, 31, 33))
	if err != nil {
		return models.Region{}, fmt.Errorf("cluster %s: invalid Dec arcminutes: %w", name, err)
	}
	decSec, err := parseFixedFloat(field(entry, 34, 36))
	if err != nil {
		return models.Region{}, fmt.Errorf("cluster %s: invalid Dec arcseconds: %w", name, err)
	}
	sign := 1.0
	if strings.HasPrefix(decDegRaw, "-") {
		sign = -1.0
	}
	dec := sign * (absFloat(decDeg) + decMin/60.0 + decSec/3600.0)

	diamRaw := strings.TrimSpace(field(entry, 40, 47))
	if diamRaw == "" {
		return models.Region{}, fmt.Errorf("cluster %s: no diameter info", name)
	}
	diamArcmin, err := strconv.ParseFloat(diamRaw, 64)
	if err != nil {
		return models.Region{}, fmt.Errorf("cluster %s: invalid diameter: %w", name, err)
	}

	region, err := models.NewRegion(name, ra, dec, models.CircularShape(diamArcmin/60.0))
	if err != nil {
		return models.Region{}, err
	}

	if g1 := strings.TrimSpace(field(entry, 37, 39)); g1 != "" {
		region.Properties = map[string]any{"g1_class": g1}
	}

	return region, nil
}

// field returns entry[from:to] clamped to the line length.
func field(entry string, from, to int) string {
	if from >= len(entry) {
		return ""
	}
	if to > len(entry) {
		to = len(entry)
	}
	return entry[from:to]
}

func parseFixedFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
