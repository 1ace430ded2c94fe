// Package projection implements ports.Projector on top of a proj4 port.
package projection

import (
	"fmt"
	"sync"

	"github.com/ctessum/geom/proj"

	"github.com/samirrijal/l8s2grid/internal/core/domain"
)

const geographic = "+proj=longlat +datum=WGS84 +no_defs"

// UTM projects WGS84 longitude/latitude into any of the 60 UTM zones. The
// northern-hemisphere definition is used everywhere, so points south of the
// equator come out with negative northings.
type UTM struct {
	src *proj.SR

	mu         sync.Mutex
	transforms map[int]proj.Transformer
}

// NewUTM creates a UTM projector.
func NewUTM() (*UTM, error) {
	src, err := proj.Parse(geographic)
	if err != nil {
		return nil, fmt.Errorf("parse geographic srs: %w", err)
	}
	return &UTM{src: src, transforms: make(map[int]proj.Transformer)}, nil
}

// Definition returns the proj4 string for zone.
func Definition(zone int) string {
	return fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone)
}

// Project returns p in the planar coordinates of zone.
func (u *UTM) Project(zone int, p domain.GeoPoint) (domain.Point, error) {
	t, err := u.transform(zone)
	if err != nil {
		return domain.Point{}, err
	}
	x, y, err := t(p.Lon, p.Lat)
	if err != nil {
		return domain.Point{}, fmt.Errorf("project (%v, %v) into zone %d: %w", p.Lon, p.Lat, zone, err)
	}
	return domain.Point{X: x, Y: y}, nil
}

func (u *UTM) transform(zone int) (proj.Transformer, error) {
	if !domain.ValidZone(zone) {
		return nil, fmt.Errorf("utm zone %d out of range", zone)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if t, ok := u.transforms[zone]; ok {
		return t, nil
	}

	dst, err := proj.Parse(Definition(zone))
	if err != nil {
		return nil, fmt.Errorf("parse zone %d srs: %w", zone, err)
	}
	t, err := u.src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("zone %d transform: %w", zone, err)
	}
	u.transforms[zone] = t
	return t, nil
}
