package postprocess

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// The working projection is CONUS Albers equal-area (EPSG:5070) on the
// GRS80 ellipsoid. Export inverts it to geographic longitude/latitude
// (EPSG:4326) for the map collaborator.
const (
	grs80A  = 6378137.0
	grs80F  = 1.0 / 298.257222101
	albLat0 = 23.0  // latitude of origin
	albLon0 = -96.0 // central meridian
	albLat1 = 29.5  // first standard parallel
	albLat2 = 45.5  // second standard parallel
)

// albersConst holds the precomputed Snyder constants for EPSG:5070.
type albersConst struct {
	e, e2    float64
	n, c     float64
	rho0, qp float64
}

var alb = newAlbers()

func newAlbers() albersConst {
	e2 := 2*grs80F - grs80F*grs80F
	e := math.Sqrt(e2)

	phi0 := albLat0 * math.Pi / 180
	phi1 := albLat1 * math.Pi / 180
	phi2 := albLat2 * math.Pi / 180

	m1 := albersM(phi1, e2)
	m2 := albersM(phi2, e2)
	q0 := albersQ(phi0, e, e2)
	q1 := albersQ(phi1, e, e2)
	q2 := albersQ(phi2, e, e2)
	qp := albersQ(math.Pi/2, e, e2)

	n := (m1*m1 - m2*m2) / (q2 - q1)
	c := m1*m1 + n*q1
	rho0 := grs80A * math.Sqrt(c-n*q0) / n

	return albersConst{e: e, e2: e2, n: n, c: c, rho0: rho0, qp: qp}
}

func albersM(phi, e2 float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-e2*s*s)
}

func albersQ(phi, e, e2 float64) float64 {
	s := math.Sin(phi)
	return (1 - e2) * (s/(1-e2*s*s) - (1/(2*e))*math.Log((1-e*s)/(1+e*s)))
}

// albersInverse maps projected (x, y) meters to (lon, lat) degrees.
func albersInverse(x, y float64) (lon, lat float64) {
	rho := math.Hypot(x, alb.rho0-y)
	theta := math.Atan2(x, alb.rho0-y)

	q := (alb.c - rho*rho*alb.n*alb.n/(grs80A*grs80A)) / alb.n

	// Authalic latitude, then the series back to geodetic latitude.
	r := q / alb.qp
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	beta := math.Asin(r)

	e2 := alb.e2
	e4 := e2 * e2
	e6 := e4 * e2
	phi := beta +
		(e2/3+31*e4/180+517*e6/5040)*math.Sin(2*beta) +
		(23*e4/360+251*e6/3780)*math.Sin(4*beta) +
		(761*e6/45360)*math.Sin(6*beta)

	lon = albLon0 + theta/alb.n*180/math.Pi
	lat = phi * 180 / math.Pi
	return lon, lat
}

// albersForward maps (lon, lat) degrees to projected (x, y) meters.
func albersForward(lon, lat float64) (x, y float64) {
	phi := lat * math.Pi / 180
	q := albersQ(phi, alb.e, alb.e2)
	rho := grs80A * math.Sqrt(alb.c-alb.n*q) / alb.n
	theta := alb.n * (lon - albLon0) * math.Pi / 180
	return rho * math.Sin(theta), alb.rho0 - rho*math.Cos(theta)
}

// toGeographic reprojects a working-projection MultiPolygon to lon/lat.
func toGeographic(mp *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	out := geom.NewMultiPolygon(geom.XY)
	for _, poly := range mp.Coords() {
		converted := make([][]geom.Coord, len(poly))
		for ri, ring := range poly {
			converted[ri] = make([]geom.Coord, len(ring))
			for ci, c := range ring {
				lon, lat := albersInverse(c[0], c[1])
				converted[ri][ci] = geom.Coord{lon, lat}
			}
		}
		p := geom.NewPolygon(geom.XY)
		if _, err := p.SetCoords(converted); err != nil {
			return nil, eris.Wrap(err, "postprocess: reproject polygon")
		}
		if err := out.Push(p); err != nil {
			return nil, eris.Wrap(err, "postprocess: push reprojected polygon")
		}
	}
	return out, nil
}
