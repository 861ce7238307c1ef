package raster

// GeoTIFF georeferencing keys.
const (
	GeographicTypeGeoKey  = 2048
	ProjectedCSTypeGeoKey = 3072

	userDefinedGeoKey = 32767
)

// GeoRef carries the GeoTIFF georeferencing tags of a raster verbatim so
// that an output raster can reproduce the input's spatial reference exactly.
type GeoRef struct {
	PixelScale     []float64 // ModelPixelScaleTag
	Tiepoints      []float64 // ModelTiepointTag
	Transformation []float64 // ModelTransformationTag
	GeoKeys        []uint16  // GeoKeyDirectoryTag
	GeoDoubles     []float64 // GeoDoubleParamsTag
	GeoASCII       string    // GeoAsciiParamsTag
}

// IsZero reports whether no georeferencing information is present.
func (g GeoRef) IsZero() bool {
	return len(g.PixelScale) == 0 && len(g.Tiepoints) == 0 &&
		len(g.Transformation) == 0 && len(g.GeoKeys) == 0 &&
		len(g.GeoDoubles) == 0 && g.GeoASCII == ""
}

// GeoTransform returns the affine transform in GDAL order:
// origin x, pixel width, row rotation, origin y, column rotation, pixel height.
func (g GeoRef) GeoTransform() ([6]float64, bool) {
	if len(g.Transformation) == 16 {
		t := g.Transformation
		return [6]float64{t[3], t[0], t[1], t[7], t[4], t[5]}, true
	}
	if len(g.PixelScale) >= 2 && len(g.Tiepoints) >= 6 {
		sx, sy := g.PixelScale[0], g.PixelScale[1]
		i, j := g.Tiepoints[0], g.Tiepoints[1]
		x, y := g.Tiepoints[3], g.Tiepoints[4]
		return [6]float64{x - i*sx, sx, 0, y + j*sy, 0, -sy}, true
	}
	return [6]float64{}, false
}

// EPSG returns the projected, or failing that geographic, EPSG code.
func (g GeoRef) EPSG() (int, bool) {
	if code, ok := g.geoKey(ProjectedCSTypeGeoKey); ok {
		return code, true
	}
	return g.geoKey(GeographicTypeGeoKey)
}

// geoKey looks up a short-valued key stored inline in the key directory.
func (g GeoRef) geoKey(id uint16) (int, bool) {
	if len(g.GeoKeys) < 4 {
		return 0, false
	}
	n := int(g.GeoKeys[3])
	for k := 0; k < n; k++ {
		off := 4 + 4*k
		if off+3 >= len(g.GeoKeys) {
			break
		}
		entry := g.GeoKeys[off : off+4]
		if entry[0] != id || entry[1] != 0 {
			continue
		}
		if entry[3] == 0 || entry[3] == userDefinedGeoKey {
			return 0, false
		}
		return int(entry[3]), true
	}
	return 0, false
}

// Clone returns a deep copy.
func (g GeoRef) Clone() GeoRef {
	return GeoRef{
		PixelScale:     append([]float64(nil), g.PixelScale...),
		Tiepoints:      append([]float64(nil), g.Tiepoints...),
		Transformation: append([]float64(nil), g.Transformation...),
		GeoKeys:        append([]uint16(nil), g.GeoKeys...),
		GeoDoubles:     append([]float64(nil), g.GeoDoubles...),
		GeoASCII:       g.GeoASCII,
	}
}
