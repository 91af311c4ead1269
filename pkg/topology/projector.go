package topology

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/TheApexWu/lacuna/config"
	"github.com/TheApexWu/lacuna/internal"
	"github.com/TheApexWu/lacuna/pkg/models"
)

var log = internal.GetLogger()

// Projector reduces one language's concept vectors to a 2D terrain
// layout with a UMAP-style neighborhood-preserving embedding. Every
// source of randomness is seeded and the optimization is single
// threaded, so identical input yields identical coordinates run to run.
type Projector struct {
	cfg config.TopologyConfig
}

func NewProjector(cfg config.TopologyConfig) *Projector {
	return &Projector{cfg: cfg}
}

// Layout is one language's fitted 2D positions, in batch order.
// Positions from different languages come from independent fits and are
// not comparable in absolute coordinates.
type Layout struct {
	Language   string
	ConceptIDs []string
	Positions  []models.Position
	// LowConfidence marks a fit that ran with a degraded neighborhood
	// size because too few concepts survived validation.
	LowConfidence bool
}

// Fit projects one language's surviving vectors to 2D.
func (p *Projector) Fit(lv *models.LanguageVectors) (*Layout, error) {
	n := len(lv.Vectors)
	layout := &Layout{Language: lv.Language, ConceptIDs: lv.ConceptIDs}

	if n == 0 {
		layout.LowConfidence = true
		return layout, nil
	}

	k := p.cfg.Neighbors
	if n < k+1 {
		k = n - 1
		layout.LowConfidence = true
		log.Warnf("topology for %s is low-confidence: %d concepts, neighborhood degraded to %d",
			lv.Language, n, k)
	}

	// With almost no points the neighborhood graph is meaningless;
	// fall back to the leading vector components.
	if k < 2 {
		for _, vec := range lv.Vectors {
			pos := models.Position{}
			if len(vec) > 0 {
				pos.X = float64(vec[0])
			}
			if len(vec) > 1 {
				pos.Z = float64(vec[1])
			}
			layout.Positions = append(layout.Positions, pos)
		}
		return layout, &models.IllDefinedProjectionError{
			Language:  lv.Language,
			Points:    n,
			Neighbors: p.cfg.Neighbors,
		}
	}

	dist := cosineDistances(lv.Vectors)
	graph := fuzzyGraph(dist, k)
	coords := pcaInit(lv.Vectors)
	optimizeLayout(coords, graph, n, p.cfg)

	for i := 0; i < n; i++ {
		layout.Positions = append(layout.Positions, models.Position{
			X: coords[i*2],
			Z: coords[i*2+1],
		})
	}
	return layout, nil
}

func cosineDistances(vectors [][]float32) []float64 {
	n := len(vectors)
	d := len(vectors[0])

	norms := make([]float64, n)
	for i, vec := range vectors {
		var s float64
		for _, v := range vec {
			s += float64(v) * float64(v)
		}
		norms[i] = math.Sqrt(s)
	}

	dist := make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var dot float64
			for c := 0; c < d; c++ {
				dot += float64(vectors[i][c]) * float64(vectors[j][c])
			}
			cos := 0.0
			if norms[i] > 0 && norms[j] > 0 {
				cos = dot / (norms[i] * norms[j])
			}
			v := 1 - cos
			if v < 0 {
				v = 0
			}
			dist[i*n+j] = v
			dist[j*n+i] = v
		}
	}
	return dist
}

type edge struct {
	from, to int
	weight   float64
}

// fuzzyGraph builds the symmetrized fuzzy neighborhood graph: per-point
// smooth-kNN calibration (rho = nearest nonzero distance, sigma solved
// so the neighborhood's total membership is log2(k)), then fuzzy union
// a + b - ab.
func fuzzyGraph(dist []float64, k int) []edge {
	n := intSqrt(len(dist))
	target := math.Log2(float64(k))

	directed := make(map[[2]int]float64, n*k)
	order := make([]int, n-1)

	for i := 0; i < n; i++ {
		idx := order[:0]
		for j := 0; j < n; j++ {
			if j != i {
				idx = append(idx, j)
			}
		}
		row := dist[i*n : (i+1)*n]
		sort.SliceStable(idx, func(a, b int) bool {
			if row[idx[a]] == row[idx[b]] {
				return idx[a] < idx[b]
			}
			return row[idx[a]] < row[idx[b]]
		})
		nearest := idx
		if len(nearest) > k {
			nearest = nearest[:k]
		}

		rho := 0.0
		for _, j := range nearest {
			if row[j] > 0 {
				rho = row[j]
				break
			}
		}

		sigma := smoothKNNSigma(row, nearest, rho, target)

		for _, j := range nearest {
			d := row[j] - rho
			if d < 0 {
				d = 0
			}
			w := 1.0
			if sigma > 0 {
				w = math.Exp(-d / sigma)
			}
			directed[[2]int{i, j}] = w
		}
	}

	var edges []edge
	for key, w := range directed {
		i, j := key[0], key[1]
		if i > j {
			continue
		}
		back := directed[[2]int{j, i}]
		union := w + back - w*back
		if union > 0 {
			edges = append(edges, edge{from: i, to: j, weight: union})
		}
	}
	// One-sided pairs where only j->i exists
	for key, w := range directed {
		i, j := key[0], key[1]
		if i <= j {
			continue
		}
		if _, ok := directed[[2]int{j, i}]; ok {
			continue
		}
		edges = append(edges, edge{from: j, to: i, weight: w})
	}

	// Map iteration order is random; the optimizer needs a fixed
	// edge order for reproducibility.
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].from == edges[b].from {
			return edges[a].to < edges[b].to
		}
		return edges[a].from < edges[b].from
	})
	return edges
}

func smoothKNNSigma(row []float64, nearest []int, rho, target float64) float64 {
	lo, hi := 0.0, math.Inf(1)
	sigma := 1.0
	for iter := 0; iter < 64; iter++ {
		var sum float64
		for _, j := range nearest {
			d := row[j] - rho
			if d <= 0 {
				sum++
				continue
			}
			sum += math.Exp(-d / sigma)
		}
		if math.Abs(sum-target) < 1e-5 {
			break
		}
		if sum > target {
			hi = sigma
			sigma = (lo + hi) / 2
		} else {
			lo = sigma
			if math.IsInf(hi, 1) {
				sigma *= 2
			} else {
				sigma = (lo + hi) / 2
			}
		}
	}
	return sigma
}

// pcaInit seeds the layout with the first two principal components,
// scaled to a +-10 box. SVD is deterministic, which anchors the whole
// fit: the stochastic optimizer then only refines a fixed starting
// configuration.
func pcaInit(vectors [][]float32) []float64 {
	n := len(vectors)
	d := len(vectors[0])

	data := mat.NewDense(n, d, nil)
	means := make([]float64, d)
	for _, vec := range vectors {
		for c, v := range vec {
			means[c] += float64(v)
		}
	}
	for c := range means {
		means[c] /= float64(n)
	}
	for i, vec := range vectors {
		for c, v := range vec {
			data.Set(i, c, float64(v)-means[c])
		}
	}

	var svd mat.SVD
	coords := make([]float64, n*2)
	if !svd.Factorize(data, mat.SVDThin) {
		// Degenerate input; tiny deterministic jitter instead.
		for i := range coords {
			coords[i] = float64(i%7) * 1e-4
		}
		return coords
	}

	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	maxAbs := 0.0
	for i := 0; i < n; i++ {
		for c := 0; c < 2 && c < len(values); c++ {
			v := u.At(i, c) * values[c]
			coords[i*2+c] = v
			if a := math.Abs(v); a > maxAbs {
				maxAbs = a
			}
		}
	}
	if maxAbs > 0 {
		scale := 10.0 / maxAbs
		for i := range coords {
			coords[i] *= scale
		}
	}
	return coords
}

// Curve anchors for the low-dimensional membership function
// 1/(1+a*d^(2b)), fitted offline for common min_dist values.
var curveAnchors = []struct {
	minDist, a, b float64
}{
	{0.0, 1.929, 0.792},
	{0.1, 1.577, 0.895},
	{0.25, 1.221, 1.010},
	{0.5, 0.828, 1.212},
	{1.0, 0.483, 1.434},
}

func curveParams(minDist float64) (float64, float64) {
	if minDist <= curveAnchors[0].minDist {
		return curveAnchors[0].a, curveAnchors[0].b
	}
	for i := 1; i < len(curveAnchors); i++ {
		hi := curveAnchors[i]
		if minDist > hi.minDist {
			continue
		}
		lo := curveAnchors[i-1]
		t := (minDist - lo.minDist) / (hi.minDist - lo.minDist)
		return lo.a + t*(hi.a-lo.a), lo.b + t*(hi.b-lo.b)
	}
	last := curveAnchors[len(curveAnchors)-1]
	return last.a, last.b
}

const (
	gradientClip    = 4.0
	negativeSamples = 5
)

// optimizeLayout runs seeded SGD with negative sampling over the fuzzy
// graph's edges. coords is n*2, mutated in place.
func optimizeLayout(coords []float64, edges []edge, n int, cfg config.TopologyConfig) {
	if len(edges) == 0 {
		return
	}
	a, b := curveParams(cfg.MinDist)
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec

	maxWeight := 0.0
	for _, e := range edges {
		if e.weight > maxWeight {
			maxWeight = e.weight
		}
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		alpha := 1.0 - float64(epoch)/float64(cfg.Epochs)

		for _, e := range edges {
			// Sample edges proportionally to membership strength.
			if rng.Float64()*maxWeight > e.weight {
				continue
			}

			attract(coords, e.from, e.to, a, b, alpha)

			for s := 0; s < negativeSamples; s++ {
				other := rng.Intn(n)
				if other == e.from {
					continue
				}
				repel(coords, e.from, other, a, b, alpha)
			}
		}
	}
}

func attract(coords []float64, i, j int, a, b, alpha float64) {
	dx := coords[i*2] - coords[j*2]
	dz := coords[i*2+1] - coords[j*2+1]
	d2 := dx*dx + dz*dz
	if d2 <= 0 {
		return
	}
	coeff := -2.0 * a * b * math.Pow(d2, b-1) / (a*math.Pow(d2, b) + 1)
	gx := clip(coeff*dx) * alpha
	gz := clip(coeff*dz) * alpha
	coords[i*2] += gx
	coords[i*2+1] += gz
	coords[j*2] -= gx
	coords[j*2+1] -= gz
}

func repel(coords []float64, i, j int, a, b, alpha float64) {
	dx := coords[i*2] - coords[j*2]
	dz := coords[i*2+1] - coords[j*2+1]
	d2 := dx*dx + dz*dz
	coeff := 2.0 * b / ((0.001 + d2) * (a*math.Pow(d2, b) + 1))
	coords[i*2] += clip(coeff*dx) * alpha
	coords[i*2+1] += clip(coeff*dz) * alpha
}

func clip(v float64) float64 {
	if v > gradientClip {
		return gradientClip
	}
	if v < -gradientClip {
		return -gradientClip
	}
	return v
}

func intSqrt(v int) int {
	return int(math.Round(math.Sqrt(float64(v))))
}
