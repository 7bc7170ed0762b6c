package physics

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/go-gl/mathgl/mgl64"
)

const minExtent = 1e-6

type indexedCollider struct {
	body     *Body
	collider int
	center   mgl64.Vec3
	radius   float64
	bounds   rtreego.Rect
}

func (c *indexedCollider) Bounds() rtreego.Rect { return c.bounds }

type spatialIndex struct {
	tree *rtreego.Rtree
}

func sphereRect(center mgl64.Vec3, radius float64) (rtreego.Rect, error) {
	r := math.Max(radius, minExtent)
	point := rtreego.Point{center.X() - r, center.Y() - r, center.Z() - r}
	return rtreego.NewRect(point, []float64{2 * r, 2 * r, 2 * r})
}

func buildIndex(bodies []*Body) *spatialIndex {
	var objs []rtreego.Spatial
	for _, b := range bodies {
		for ci, c := range b.Colliders {
			if c.Disabled {
				continue
			}
			center := b.ColliderCenter(ci)
			rect, err := sphereRect(center, c.Radius)
			if err != nil {
				continue
			}
			objs = append(objs, &indexedCollider{body: b, collider: ci, center: center, radius: c.Radius, bounds: rect})
		}
	}
	return &spatialIndex{tree: rtreego.NewTree(3, 4, 16, objs...)}
}

// OverlapSphere returns every body on a layer in mask that has a collider
// intersecting the sphere. Each body appears once, sorted by ID.
func (w *World) OverlapSphere(center mgl64.Vec3, radius float64, mask Layer) []*Body {
	if w.index == nil {
		w.index = buildIndex(w.bodies)
	}
	query, err := sphereRect(center, radius)
	if err != nil {
		return nil
	}

	var out []*Body
	seen := make(map[*Body]bool)
	for _, s := range w.index.tree.SearchIntersect(query) {
		c := s.(*indexedCollider)
		if c.body.Layer&mask == 0 || seen[c.body] {
			continue
		}
		if c.center.Sub(center).Len() > radius+c.radius {
			continue
		}
		seen[c.body] = true
		out = append(out, c.body)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

