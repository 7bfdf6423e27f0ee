package sequencing

import (
	"context"
	"math/rand"
	"sort"
)

// Genetic search parameters. Population and generation counts scale with
// the problem size; elitism carries the top slice over unchanged.
const (
	maxPopulation  = 50
	maxGenerations = 100
	elitePct       = 0.20
	tournamentSize = 3
)

// fitnessFunc scores a candidate ordering of destination indexes.
// Higher is better.
type fitnessFunc func(order []int) float64

// geneticOptimizer runs a maximization search over orderings. It is a
// heuristic: it improves the best-known solution monotonically but does
// not guarantee a global optimum. Reproducibility requires a seeded rng.
type geneticOptimizer struct {
	n            int
	mutationRate float64
	rng          *rand.Rand
	fitness      fitnessFunc
}

func newGeneticOptimizer(n int, mutationRate float64, rng *rand.Rand, fitness fitnessFunc) *geneticOptimizer {
	return &geneticOptimizer{
		n:            n,
		mutationRate: mutationRate,
		rng:          rng,
		fitness:      fitness,
	}
}

type individual struct {
	order   []int
	fitness float64
}

// Run evolves the population and returns the best ordering found plus
// the best fitness after each generation. The history is non-decreasing
// because the elite carry over unchanged. A cancelled context stops the
// search early and returns the best ordering found so far.
func (g *geneticOptimizer) Run(ctx context.Context) ([]int, []float64) {
	popSize := 4 * g.n
	if popSize > maxPopulation {
		popSize = maxPopulation
	}
	generations := 2 * g.n
	if generations > maxGenerations {
		generations = maxGenerations
	}
	eliteCount := int(float64(popSize) * elitePct)
	if eliteCount < 1 {
		eliteCount = 1
	}

	pop := make([]individual, popSize)
	for i := range pop {
		order := g.rng.Perm(g.n)
		pop[i] = individual{order: order, fitness: g.fitness(order)}
	}
	sortByFitness(pop)

	history := make([]float64, 0, generations)
	for gen := 0; gen < generations; gen++ {
		if ctx.Err() != nil {
			break
		}
		next := make([]individual, 0, popSize)

		// Elitism: the top slice survives unchanged.
		for i := 0; i < eliteCount; i++ {
			next = append(next, pop[i])
		}

		for len(next) < popSize {
			parentA := g.tournament(pop)
			parentB := g.tournament(pop)
			child := g.orderCrossover(parentA.order, parentB.order)
			if g.rng.Float64() < g.mutationRate {
				g.swapMutate(child)
			}
			next = append(next, individual{order: child, fitness: g.fitness(child)})
		}

		pop = next
		sortByFitness(pop)
		history = append(history, pop[0].fitness)
	}

	return pop[0].order, history
}

// tournament picks the fittest of tournamentSize random individuals.
func (g *geneticOptimizer) tournament(pop []individual) individual {
	best := pop[g.rng.Intn(len(pop))]
	for i := 1; i < tournamentSize; i++ {
		challenger := pop[g.rng.Intn(len(pop))]
		if challenger.fitness > best.fitness {
			best = challenger
		}
	}
	return best
}

// orderCrossover copies a random contiguous slice from parent A and
// fills the remaining positions in parent B's relative order.
func (g *geneticOptimizer) orderCrossover(a, b []int) []int {
	n := len(a)
	child := make([]int, n)
	for i := range child {
		child[i] = -1
	}

	lo := g.rng.Intn(n)
	hi := g.rng.Intn(n)
	if lo > hi {
		lo, hi = hi, lo
	}

	inSlice := make(map[int]bool, hi-lo+1)
	for i := lo; i <= hi; i++ {
		child[i] = a[i]
		inSlice[a[i]] = true
	}

	pos := (hi + 1) % n
	for i := 0; i < n; i++ {
		gene := b[(hi+1+i)%n]
		if inSlice[gene] {
			continue
		}
		child[pos] = gene
		pos = (pos + 1) % n
	}

	return child
}

// swapMutate exchanges two random positions in place.
func (g *geneticOptimizer) swapMutate(order []int) {
	if len(order) < 2 {
		return
	}
	i := g.rng.Intn(len(order))
	j := g.rng.Intn(len(order))
	order[i], order[j] = order[j], order[i]
}

func sortByFitness(pop []individual) {
	sort.SliceStable(pop, func(i, j int) bool { return pop[i].fitness > pop[j].fitness })
}
