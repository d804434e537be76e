package stitch

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// CostMatrix holds the IoU-derived pairwise cost between the nonzero
// labels of two frames, together with the per-label pixel sizes used both
// for the cost denominators and for the transport marginals. Costs are in
// [0,1]: 0 means perfect spatial coincidence, 1 means disjoint regions.
//
// Both the cost matrix and the size vectors are indexed over the same
// nonzero label sets; background carries no transportable mass and never
// appears as a row or column.
type CostMatrix struct {
	C      *mat.Dense
	Lbls0  []int32
	Lbls1  []int32
	Sizes0 []float64
	Sizes1 []float64
}

// NewCostMatrix restricts the overlap table to the given nonzero label
// sets and fills cost entries with 1 - IoU. The size of a label is its
// full pixel area (the row or column sum of the contingency table), so a
// label pair with no contact costs exactly 1.
func NewCostMatrix(ov *OverlapMatrix, lbls0, lbls1 []int32) *CostMatrix {
	n, m := len(lbls0), len(lbls1)
	cm := &CostMatrix{
		C:      mat.NewDense(max(n, 1), max(m, 1), nil),
		Lbls0:  lbls0,
		Lbls1:  lbls1,
		Sizes0: make([]float64, n),
		Sizes1: make([]float64, m),
	}
	for i, l0 := range lbls0 {
		cm.Sizes0[i] = float64(ov.RowSum(l0))
	}
	for j, l1 := range lbls1 {
		cm.Sizes1[j] = float64(ov.ColSum(l1))
	}
	for i, l0 := range lbls0 {
		for j, l1 := range lbls1 {
			inter := float64(ov.At(l0, l1))
			union := cm.Sizes0[i] + cm.Sizes1[j] - inter
			iou := 0.0
			if union > 0 {
				iou = inter / union
			}
			cm.C.Set(i, j, 1-iou)
		}
	}
	return cm
}

// Cost returns the cost entry for row i, column j.
func (cm *CostMatrix) Cost(i, j int) float64 { return cm.C.At(i, j) }

// Distributions returns the normalized label-size distributions of the
// two frames, the marginals of the transport problem.
func (cm *CostMatrix) Distributions() (dist0, dist1 []float64) {
	dist0 = normalize(cm.Sizes0)
	dist1 = normalize(cm.Sizes1)
	return dist0, dist1
}

func normalize(sizes []float64) []float64 {
	out := make([]float64, len(sizes))
	total := floats.Sum(sizes)
	if total == 0 {
		return out
	}
	for i, s := range sizes {
		out[i] = s / total
	}
	return out
}

// Plan solves the exact earth-mover problem between two discrete
// distributions under the given pairwise cost, returning the coupling
// matrix whose rows sum to dist0 and columns to dist1.
//
// The transportation problem is posed as a standard-form linear program
// over the n*m coupling entries, with one marginal constraint dropped
// (the constraint system is rank n+m-1), and handed to gonum's simplex
// solver. ErrInfeasibleTransport is returned when either distribution
// carries no mass or the solver reports the program infeasible.
func Plan(dist0, dist1 []float64, cost *mat.Dense) (*mat.Dense, error) {
	n, m := len(dist0), len(dist1)
	if n == 0 || m == 0 || floats.Sum(dist0) == 0 || floats.Sum(dist1) == 0 {
		return nil, fmt.Errorf("%w: %d x %d labels, mass %g / %g",
			ErrInfeasibleTransport, n, m, floats.Sum(dist0), floats.Sum(dist1))
	}
	if r, c := cost.Dims(); r != n || c != m {
		return nil, fmt.Errorf("%w: cost matrix %dx%d does not match distributions %dx%d",
			ErrDimensionMismatch, r, c, n, m)
	}

	// Flatten the coupling into n*m variables x[i*m+j] >= 0 with
	// equality constraints for every row marginal and all but the last
	// column marginal.
	nvar := n * m
	ncon := n + m - 1
	c := make([]float64, nvar)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			c[i*m+j] = cost.At(i, j)
		}
	}
	a := mat.NewDense(ncon, nvar, nil)
	b := make([]float64, ncon)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			a.Set(i, i*m+j, 1)
		}
		b[i] = dist0[i]
	}
	for j := 0; j < m-1; j++ {
		for i := 0; i < n; i++ {
			a.Set(n+j, i*m+j, 1)
		}
		b[n+j] = dist1[j]
	}

	_, x, err := lp.Simplex(c, a, b, 1e-10, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasibleTransport, err)
	}

	plan := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			v := x[i*m+j]
			if v < 0 {
				v = 0
			}
			plan.Set(i, j, v)
		}
	}
	return plan, nil
}

// HardAssignment derives a binary frame0 -> frame1 matching from a
// transport plan: each row nominates the column receiving its largest
// transported mass. The first maximum wins, so ties resolve to the
// smallest label index and the assignment is deterministic. The matching
// need not be injective and some columns may receive no nomination.
func HardAssignment(plan *mat.Dense) []int {
	n, m := plan.Dims()
	assign := make([]int, n)
	for i := 0; i < n; i++ {
		best := 0
		bestMass := plan.At(i, 0)
		for j := 1; j < m; j++ {
			if v := plan.At(i, j); v > bestMass {
				bestMass = v
				best = j
			}
		}
		assign[i] = best
	}
	return assign
}
