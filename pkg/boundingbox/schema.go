package boundingbox

// quad holds the four coordinate values of a matched schema plus the
// mapping into corner form, before any unit scaling.
type quad struct {
	a, b, c, d float64
	toCorners  func(a, b, c, d float64) (left, top, right, bottom float64)
}

func (q quad) corners() (float64, float64, float64, float64) {
	return q.toCorners(q.a, q.b, q.c, q.d)
}

// values returns the raw extracted coordinates, used by the unit
// heuristic before any corner conversion.
func (q quad) values() [4]float64 {
	return [4]float64{q.a, q.b, q.c, q.d}
}

// schema is one recognized key-naming convention. Schemas are probed in
// a fixed priority order; the first one whose keys are all present wins.
type schema struct {
	name      string
	keys      [4]string
	toCorners func(a, b, c, d float64) (float64, float64, float64, float64)
}

var schemas = []schema{
	{
		name: "xywh",
		keys: [4]string{"x", "y", "width", "height"},
		toCorners: func(x, y, w, h float64) (float64, float64, float64, float64) {
			return x, y, x + w, y + h
		},
	},
	{
		name: "corners",
		keys: [4]string{"x0", "y0", "x1", "y1"},
		toCorners: func(x0, y0, x1, y1 float64) (float64, float64, float64, float64) {
			return x0, y0, x1, y1
		},
	},
	{
		name: "edges",
		keys: [4]string{"left", "top", "right", "bottom"},
		toCorners: func(l, t, r, b float64) (float64, float64, float64, float64) {
			return l, t, r, b
		},
	},
}

// wrapperKeys are nested object keys the box may be placed under.
var wrapperKeys = []string{"bounding_box", "box", "bbox"}

// locateBox probes the document, then any wrapped object, against the
// recognized schemas in priority order.
func locateBox(doc map[string]any) (quad, bool) {
	candidates := []map[string]any{doc}
	for _, key := range wrapperKeys {
		if nested, ok := doc[key].(map[string]any); ok {
			candidates = append(candidates, nested)
		}
	}

	for _, candidate := range candidates {
		for _, s := range schemas {
			if q, ok := s.extract(candidate); ok {
				return q, true
			}
		}
	}
	return quad{}, false
}

// extract matches the schema against a candidate object. All four keys
// must be present with numeric values.
func (s schema) extract(m map[string]any) (quad, bool) {
	var vals [4]float64
	for i, key := range s.keys {
		v, ok := m[key].(float64)
		if !ok {
			return quad{}, false
		}
		vals[i] = v
	}
	return quad{a: vals[0], b: vals[1], c: vals[2], d: vals[3], toCorners: s.toCorners}, true
}

// isNormalized decides whether the extracted coordinates are [0,1]
// fractions of the image dimensions or absolute pixels. The policy is a
// single global heuristic: if every value is at most 1.0 the box is
// treated as normalized. Mixed units within one box are not supported.
func isNormalized(vals [4]float64) bool {
	for _, v := range vals {
		if v > 1.0 {
			return false
		}
	}
	return true
}
