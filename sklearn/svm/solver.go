package svm

import (
	"context"
	"math"

	"github.com/YuminosukeSato/scigo-svm/kernel"
	"github.com/YuminosukeSato/scigo-svm/pkg/errors"
	"github.com/YuminosukeSato/scigo-svm/pkg/log"
)

// Step describes one pair update. I and J are problem entry indices.
type Step[F kernel.Float] struct {
	Iteration      int
	I, J           int
	AlphaI, AlphaJ F
	DeltaI, DeltaJ F
	UpperI, UpperJ F
	// Objective is the dual objective after the update and Delta its change.
	Objective  float64
	Delta      float64
	Violation  float64
	ActiveSize int
}

// Monitor observes every pair update of a solve.
type Monitor[F kernel.Float] interface {
	Observe(step Step[F])
}

// MonitorFunc adapts a function to Monitor.
type MonitorFunc[F kernel.Float] func(step Step[F])

func (f MonitorFunc[F]) Observe(step Step[F]) { f(step) }

type boundState int8

const (
	lowerBound boundState = iota
	upperBound
	freeState
)

// Solver runs sequential minimal optimization with second order working set
// selection over a Problem. Variables are kept in float64; kernel columns
// come from the provider in F.
//
// Positions [0, activeSize) are the active set. Shrinking swaps positions,
// activeSet maps a position back to its problem entry.
type Solver[F kernel.Float] struct {
	q  *kernel.Provider[F]
	qd []F

	l          int
	activeSize int
	sign       []int8
	alpha      []float64
	g          []float64
	gBar       []float64 // gradient contribution of variables at their upper bound
	p          []float64
	upper      []float64
	status     []boundState
	activeSet  []int

	eps       float64
	maxIter   int
	shrinking bool
	unshrink  bool
	nu        bool

	objective float64
	violation float64

	logger  log.Logger
	monitor Monitor[F]
}

// NewSolver prepares a solve of prob. q must have been built from prob.Index
// and prob.Sign. The solver takes ownership of q's permutation.
func NewSolver[F kernel.Float](prob *Problem[F], q *kernel.Provider[F], params SolverParams, monitor Monitor[F]) (*Solver[F], error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	l := prob.Len()
	if l == 0 {
		return nil, errors.ErrEmptyData
	}
	if q.Len() != l {
		return nil, errors.NewDimensionError("NewSolver", l, q.Len(), 0)
	}
	if len(prob.Linear) != l || len(prob.Sign) != l || len(prob.Upper) != l {
		return nil, errors.NewValueError("NewSolver", "problem vectors have inconsistent lengths")
	}

	s := &Solver[F]{
		q:         q,
		qd:        q.Diagonal(),
		l:         l,
		sign:      append([]int8(nil), prob.Sign...),
		alpha:     make([]float64, l),
		g:         make([]float64, l),
		gBar:      make([]float64, l),
		p:         make([]float64, l),
		upper:     make([]float64, l),
		status:    make([]boundState, l),
		activeSet: make([]int, l),
		eps:       params.tolerance(),
		maxIter:   params.iterationCap(l),
		shrinking: params.Shrinking,
		nu:        prob.Nu,
		logger:    params.Logger,
		monitor:   monitor,
	}
	for i := 0; i < l; i++ {
		s.alpha[i] = float64(prob.Alpha[i])
		s.p[i] = float64(prob.Linear[i])
		s.upper[i] = float64(prob.Upper[i])
		if s.alpha[i] < 0 || s.alpha[i] > s.upper[i] {
			return nil, errors.NewValueError("NewSolver", "initial alpha violates its box constraint")
		}
		s.updateStatus(i)
		s.activeSet[i] = i
	}
	s.activeSize = l
	return s, nil
}

func (s *Solver[F]) updateStatus(i int) {
	switch {
	case s.alpha[i] >= s.upper[i]:
		s.status[i] = upperBound
	case s.alpha[i] <= 0:
		s.status[i] = lowerBound
	default:
		s.status[i] = freeState
	}
}

func (s *Solver[F]) isUpper(i int) bool { return s.status[i] == upperBound }
func (s *Solver[F]) isLower(i int) bool { return s.status[i] == lowerBound }
func (s *Solver[F]) isFree(i int) bool  { return s.status[i] == freeState }

func (s *Solver[F]) swap(i, j int) {
	s.q.Swap(i, j)
	s.sign[i], s.sign[j] = s.sign[j], s.sign[i]
	s.g[i], s.g[j] = s.g[j], s.g[i]
	s.status[i], s.status[j] = s.status[j], s.status[i]
	s.alpha[i], s.alpha[j] = s.alpha[j], s.alpha[i]
	s.p[i], s.p[j] = s.p[j], s.p[i]
	s.upper[i], s.upper[j] = s.upper[j], s.upper[i]
	s.activeSet[i], s.activeSet[j] = s.activeSet[j], s.activeSet[i]
	s.gBar[i], s.gBar[j] = s.gBar[j], s.gBar[i]
}

func (s *Solver[F]) initGradient() {
	for i := 0; i < s.l; i++ {
		s.g[i] = s.p[i]
		s.gBar[i] = 0
	}
	for i := 0; i < s.l; i++ {
		if s.isLower(i) {
			continue
		}
		qi := s.q.Column(i, s.l)
		ai := s.alpha[i]
		for j := 0; j < s.l; j++ {
			s.g[j] += ai * float64(qi[j])
		}
		if s.isUpper(i) {
			ci := s.upper[i]
			for j := 0; j < s.l; j++ {
				s.gBar[j] += ci * float64(qi[j])
			}
		}
	}
}

// reconstructGradient recomputes G for the inactive positions from G_bar
// and the free variables.
func (s *Solver[F]) reconstructGradient() {
	if s.activeSize == s.l {
		return
	}
	for j := s.activeSize; j < s.l; j++ {
		s.g[j] = s.gBar[j] + s.p[j]
	}
	nFree := 0
	for j := 0; j < s.activeSize; j++ {
		if s.isFree(j) {
			nFree++
		}
	}

	if nFree*s.l > 2*s.activeSize*(s.l-s.activeSize) {
		for i := s.activeSize; i < s.l; i++ {
			qi := s.q.Column(i, s.activeSize)
			for j := 0; j < s.activeSize; j++ {
				if s.isFree(j) {
					s.g[i] += s.alpha[j] * float64(qi[j])
				}
			}
		}
		return
	}
	for i := 0; i < s.activeSize; i++ {
		if !s.isFree(i) {
			continue
		}
		qi := s.q.Column(i, s.l)
		ai := s.alpha[i]
		for j := s.activeSize; j < s.l; j++ {
			s.g[j] += ai * float64(qi[j])
		}
	}
}

// Solve runs the optimization to convergence or to the iteration cap.
// A Solver must not be reused.
func (s *Solver[F]) Solve() *Solution[F] {
	s.initGradient()
	s.objective = s.exactObjective()

	shrinkPeriod := s.l
	if shrinkPeriod > 1000 {
		shrinkPeriod = 1000
	}
	counter := shrinkPeriod + 1

	iter := 0
	for iter < s.maxIter {
		if counter--; counter == 0 {
			counter = shrinkPeriod
			if s.shrinking {
				s.doShrinking()
			}
			s.logProgress(iter)
		}

		i, j, optimal := s.selectWorkingSet()
		if optimal {
			// a shrunk set can look optimal while the full set is not
			s.reconstructGradient()
			s.activeSize = s.l
			if i, j, optimal = s.selectWorkingSet(); optimal {
				break
			}
			counter = 1
		}

		iter++
		s.updatePair(iter, i, j)
	}

	status := StatusConverged
	if iter >= s.maxIter {
		status = StatusIterationLimit
		if s.activeSize < s.l {
			s.reconstructGradient()
			s.activeSize = s.l
		}
		s.violation = s.maxViolation()
	}

	sol := &Solution[F]{
		Iterations: iter,
		Status:     status,
		Violation:  s.violation,
	}
	if s.nu {
		rho, r := s.nuRho()
		sol.Rho, sol.R = F(rho), F(r)
	} else {
		sol.Rho = F(s.rho())
	}
	sol.Objective = s.exactObjective()

	sol.Alpha = make([]F, s.l)
	for k := 0; k < s.l; k++ {
		sol.Alpha[s.activeSet[k]] = F(s.alpha[k])
	}

	if s.logger != nil {
		s.logger.Debug("optimization finished",
			log.IterationKey, iter,
			log.SVMStatusKey, status.String(),
			log.SVMObjectiveKey, sol.Objective,
			log.SVMRhoKey, float64(sol.Rho),
		)
	}
	return sol
}

func (s *Solver[F]) exactObjective() float64 {
	var v float64
	for k := 0; k < s.l; k++ {
		v += s.alpha[k] * (s.g[k] + s.p[k])
	}
	return v / 2
}

func (s *Solver[F]) logProgress(iter int) {
	if s.logger == nil || !s.logger.Enabled(context.Background(), log.LevelDebug) {
		return
	}
	s.logger.Debug("smo progress",
		log.IterationKey, iter,
		log.SVMActiveSizeKey, s.activeSize,
		log.SVMViolationKey, s.violation,
		log.SVMObjectiveKey, s.objective,
	)
}

// updatePair solves the two-variable subproblem on (i, j) with box
// clipping, then refreshes G over the active set and G_bar where a bound
// status changed.
func (s *Solver[F]) updatePair(iter, i, j int) {
	qi := s.q.Column(i, s.activeSize)
	qj := s.q.Column(j, s.activeSize)
	qij := float64(qi[j])

	ci, cj := s.upper[i], s.upper[j]
	oldI, oldJ := s.alpha[i], s.alpha[j]

	if s.sign[i] != s.sign[j] {
		quad := float64(s.qd[i]) + float64(s.qd[j]) + 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.g[i] - s.g[j]) / quad
		diff := s.alpha[i] - s.alpha[j]
		s.alpha[i] += delta
		s.alpha[j] += delta

		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j] = 0
				s.alpha[i] = diff
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = -diff
		}
		if diff > ci-cj {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = ci - diff
			}
		} else if s.alpha[j] > cj {
			s.alpha[j] = cj
			s.alpha[i] = cj + diff
		}
	} else {
		quad := float64(s.qd[i]) + float64(s.qd[j]) - 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (s.g[i] - s.g[j]) / quad
		sum := s.alpha[i] + s.alpha[j]
		s.alpha[i] -= delta
		s.alpha[j] += delta

		if sum > ci {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = sum - ci
			}
		} else if s.alpha[j] < 0 {
			s.alpha[j] = 0
			s.alpha[i] = sum
		}
		if sum > cj {
			if s.alpha[j] > cj {
				s.alpha[j] = cj
				s.alpha[i] = sum - cj
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = sum
		}
	}

	dI := s.alpha[i] - oldI
	dJ := s.alpha[j] - oldJ

	// exact change of 1/2 a'Qa + p'a along (dI, dJ), from the gradient before the update
	objDelta := s.g[i]*dI + s.g[j]*dJ +
		0.5*(float64(s.qd[i])*dI*dI+float64(s.qd[j])*dJ*dJ) + qij*dI*dJ
	s.objective += objDelta

	for k := 0; k < s.activeSize; k++ {
		s.g[k] += float64(qi[k])*dI + float64(qj[k])*dJ
	}

	wasUpperI, wasUpperJ := s.isUpper(i), s.isUpper(j)
	s.updateStatus(i)
	s.updateStatus(j)
	if wasUpperI != s.isUpper(i) {
		s.shiftGBar(i, ci, wasUpperI)
	}
	if wasUpperJ != s.isUpper(j) {
		s.shiftGBar(j, cj, wasUpperJ)
	}

	if s.monitor != nil {
		s.monitor.Observe(Step[F]{
			Iteration:  iter,
			I:          s.activeSet[i],
			J:          s.activeSet[j],
			AlphaI:     F(s.alpha[i]),
			AlphaJ:     F(s.alpha[j]),
			DeltaI:     F(dI),
			DeltaJ:     F(dJ),
			UpperI:     F(ci),
			UpperJ:     F(cj),
			Objective:  s.objective,
			Delta:      objDelta,
			Violation:  s.violation,
			ActiveSize: s.activeSize,
		})
	}
}

func (s *Solver[F]) shiftGBar(i int, c float64, leftUpper bool) {
	qi := s.q.Column(i, s.l)
	if leftUpper {
		c = -c
	}
	for k := 0; k < s.l; k++ {
		s.gBar[k] += c * float64(qi[k])
	}
}

// selectWorkingSet returns the pair (i, j) chosen by the second order rule,
// or optimal = true when the maximal violation is below the tolerance.
func (s *Solver[F]) selectWorkingSet() (i, j int, optimal bool) {
	if s.nu {
		return s.selectWorkingSetNu()
	}

	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	gmaxIdx, gminIdx := -1, -1
	objDiffMin := math.Inf(1)

	// i maximises -y_i*grad_i over I_up
	for t := 0; t < s.activeSize; t++ {
		if s.sign[t] == 1 {
			if !s.isUpper(t) && -s.g[t] > gmax {
				gmax, gmaxIdx = -s.g[t], t
			}
		} else if !s.isLower(t) && s.g[t] > gmax {
			gmax, gmaxIdx = s.g[t], t
		}
	}

	i = gmaxIdx
	var qi []F
	if i != -1 {
		qi = s.q.Column(i, s.activeSize)
	}

	// j minimises the second order decrease over I_low
	for t := 0; t < s.activeSize; t++ {
		if s.sign[t] == 1 {
			if s.isLower(t) {
				continue
			}
			gradDiff := gmax + s.g[t]
			if s.g[t] > gmax2 {
				gmax2 = s.g[t]
			}
			if gradDiff > 0 {
				quad := float64(s.qd[i]) + float64(s.qd[t]) - 2*float64(s.sign[i])*float64(qi[t])
				if d := secondOrderGain(gradDiff, quad); d < objDiffMin {
					gminIdx, objDiffMin = t, d
				}
			}
		} else {
			if s.isUpper(t) {
				continue
			}
			gradDiff := gmax - s.g[t]
			if -s.g[t] > gmax2 {
				gmax2 = -s.g[t]
			}
			if gradDiff > 0 {
				quad := float64(s.qd[i]) + float64(s.qd[t]) + 2*float64(s.sign[i])*float64(qi[t])
				if d := secondOrderGain(gradDiff, quad); d < objDiffMin {
					gminIdx, objDiffMin = t, d
				}
			}
		}
	}

	s.violation = gmax + gmax2
	if s.violation < s.eps || gminIdx == -1 {
		return -1, -1, true
	}
	return gmaxIdx, gminIdx, false
}

// selectWorkingSetNu restricts pairs to equal signs so that the alpha sum of
// each sign is preserved.
func (s *Solver[F]) selectWorkingSetNu() (i, j int, optimal bool) {
	gmaxp, gmaxp2 := math.Inf(-1), math.Inf(-1)
	gmaxn, gmaxn2 := math.Inf(-1), math.Inf(-1)
	gmaxpIdx, gmaxnIdx, gminIdx := -1, -1, -1
	objDiffMin := math.Inf(1)

	for t := 0; t < s.activeSize; t++ {
		if s.sign[t] == 1 {
			if !s.isUpper(t) && -s.g[t] > gmaxp {
				gmaxp, gmaxpIdx = -s.g[t], t
			}
		} else if !s.isLower(t) && s.g[t] > gmaxn {
			gmaxn, gmaxnIdx = s.g[t], t
		}
	}

	var qip, qin []F
	if gmaxpIdx != -1 {
		qip = s.q.Column(gmaxpIdx, s.activeSize)
	}
	if gmaxnIdx != -1 {
		qin = s.q.Column(gmaxnIdx, s.activeSize)
	}

	for t := 0; t < s.activeSize; t++ {
		if s.sign[t] == 1 {
			if s.isLower(t) {
				continue
			}
			gradDiff := gmaxp + s.g[t]
			if s.g[t] > gmaxp2 {
				gmaxp2 = s.g[t]
			}
			if gradDiff > 0 {
				quad := float64(s.qd[gmaxpIdx]) + float64(s.qd[t]) - 2*float64(qip[t])
				if d := secondOrderGain(gradDiff, quad); d < objDiffMin {
					gminIdx, objDiffMin = t, d
				}
			}
		} else {
			if s.isUpper(t) {
				continue
			}
			gradDiff := gmaxn - s.g[t]
			if -s.g[t] > gmaxn2 {
				gmaxn2 = -s.g[t]
			}
			if gradDiff > 0 {
				quad := float64(s.qd[gmaxnIdx]) + float64(s.qd[t]) - 2*float64(qin[t])
				if d := secondOrderGain(gradDiff, quad); d < objDiffMin {
					gminIdx, objDiffMin = t, d
				}
			}
		}
	}

	s.violation = math.Max(gmaxp+gmaxp2, gmaxn+gmaxn2)
	if s.violation < s.eps || gminIdx == -1 {
		return -1, -1, true
	}
	if s.sign[gminIdx] == 1 {
		return gmaxpIdx, gminIdx, false
	}
	return gmaxnIdx, gminIdx, false
}

func secondOrderGain(gradDiff, quad float64) float64 {
	if quad <= 0 {
		quad = tau
	}
	return -(gradDiff * gradDiff) / quad
}

// boundViolations returns g1 = max{-y_i G_i | i in I_up} and
// g2 = max{y_i G_i | i in I_low} over the active set.
func (s *Solver[F]) boundViolations() (g1, g2 float64) {
	g1, g2 = math.Inf(-1), math.Inf(-1)
	for t := 0; t < s.activeSize; t++ {
		if s.sign[t] == 1 {
			if !s.isUpper(t) {
				g1 = math.Max(g1, -s.g[t])
			}
			if !s.isLower(t) {
				g2 = math.Max(g2, s.g[t])
			}
		} else {
			if !s.isUpper(t) {
				g2 = math.Max(g2, -s.g[t])
			}
			if !s.isLower(t) {
				g1 = math.Max(g1, s.g[t])
			}
		}
	}
	return g1, g2
}

func (s *Solver[F]) maxViolation() float64 {
	if !s.nu {
		g1, g2 := s.boundViolations()
		return g1 + g2
	}
	g1, g2, g3, g4 := s.nuViolations()
	return math.Max(g1+g2, g3+g4)
}

func (s *Solver[F]) beShrunk(i int, g1, g2 float64) bool {
	switch {
	case s.isUpper(i):
		if s.sign[i] == 1 {
			return -s.g[i] > g1
		}
		return -s.g[i] > g2
	case s.isLower(i):
		if s.sign[i] == 1 {
			return s.g[i] > g2
		}
		return s.g[i] > g1
	default:
		return false
	}
}

func (s *Solver[F]) doShrinking() {
	if s.nu {
		s.doShrinkingNu()
		return
	}
	g1, g2 := s.boundViolations()

	if !s.unshrink && g1+g2 <= s.eps*10 {
		s.unshrink = true
		s.reconstructGradient()
		s.activeSize = s.l
	}
	s.compact(func(i int) bool { return s.beShrunk(i, g1, g2) })
}

// nuViolations splits the maximal violations by sign. g1 (y = +1) and g4
// (y = -1) are max -G_i over variables below their upper bound; g2 (y = +1)
// and g3 (y = -1) are max G_i over variables above zero.
func (s *Solver[F]) nuViolations() (g1, g2, g3, g4 float64) {
	g1, g2, g3, g4 = math.Inf(-1), math.Inf(-1), math.Inf(-1), math.Inf(-1)
	for t := 0; t < s.activeSize; t++ {
		if !s.isUpper(t) {
			if s.sign[t] == 1 {
				g1 = math.Max(g1, -s.g[t])
			} else {
				g4 = math.Max(g4, -s.g[t])
			}
		}
		if !s.isLower(t) {
			if s.sign[t] == 1 {
				g2 = math.Max(g2, s.g[t])
			} else {
				g3 = math.Max(g3, s.g[t])
			}
		}
	}
	return g1, g2, g3, g4
}

func (s *Solver[F]) doShrinkingNu() {
	g1, g2, g3, g4 := s.nuViolations()

	if !s.unshrink && math.Max(g1+g2, g3+g4) <= s.eps*10 {
		s.unshrink = true
		s.reconstructGradient()
		s.activeSize = s.l
	}
	s.compact(func(i int) bool {
		switch {
		case s.isUpper(i):
			if s.sign[i] == 1 {
				return -s.g[i] > g1
			}
			return -s.g[i] > g4
		case s.isLower(i):
			if s.sign[i] == 1 {
				return s.g[i] > g2
			}
			return s.g[i] > g3
		default:
			return false
		}
	})
}

// compact moves every position for which shrink holds behind the active set.
func (s *Solver[F]) compact(shrink func(int) bool) {
	for i := 0; i < s.activeSize; i++ {
		if !shrink(i) {
			continue
		}
		s.activeSize--
		for s.activeSize > i {
			if !shrink(s.activeSize) {
				s.swap(i, s.activeSize)
				break
			}
			s.activeSize--
		}
	}
}

// rho averages y_i*G_i over free variables, falling back to the midpoint of
// the bounds implied by the pinned ones.
func (s *Solver[F]) rho() float64 {
	nFree := 0
	ub, lb := math.Inf(1), math.Inf(-1)
	sumFree := 0.0
	for i := 0; i < s.activeSize; i++ {
		yG := float64(s.sign[i]) * s.g[i]
		switch {
		case s.isLower(i):
			if s.sign[i] > 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		case s.isUpper(i):
			if s.sign[i] < 0 {
				ub = math.Min(ub, yG)
			} else {
				lb = math.Max(lb, yG)
			}
		default:
			nFree++
			sumFree += yG
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

// nuRho computes rho and r from the two sign halves separately.
func (s *Solver[F]) nuRho() (rho, r float64) {
	var nFree [2]int
	var sumFree [2]float64
	ub := [2]float64{math.Inf(1), math.Inf(1)}
	lb := [2]float64{math.Inf(-1), math.Inf(-1)}

	for i := 0; i < s.activeSize; i++ {
		h := 0
		if s.sign[i] != 1 {
			h = 1
		}
		switch {
		case s.isLower(i):
			ub[h] = math.Min(ub[h], s.g[i])
		case s.isUpper(i):
			lb[h] = math.Max(lb[h], s.g[i])
		default:
			nFree[h]++
			sumFree[h] += s.g[i]
		}
	}

	var half [2]float64
	for h := 0; h < 2; h++ {
		if nFree[h] > 0 {
			half[h] = sumFree[h] / float64(nFree[h])
		} else {
			half[h] = (ub[h] + lb[h]) / 2
		}
	}
	return (half[0] - half[1]) / 2, (half[0] + half[1]) / 2
}
