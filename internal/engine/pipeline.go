package engine

import (
	"fmt"
	"log"
)

// StageFunc computes one pipeline stage's value from the shared context.
type StageFunc func(ctx map[string]any) (any, error)

type stage struct {
	name      string
	fn        StageFunc
	dependsOn []string
}

// Pipeline executes named stages in an order respecting their declared
// prerequisites. Each stage runs exactly once and its result is written into
// the shared context under the stage's name.
type Pipeline struct {
	stages []stage
}

// NewPipeline creates an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// AddStage registers a stage with its prerequisite stage names. It returns
// the pipeline to allow chaining.
func (p *Pipeline) AddStage(name string, fn StageFunc, dependsOn ...string) *Pipeline {
	p.stages = append(p.stages, stage{name: name, fn: fn, dependsOn: dependsOn})
	return p
}

// Run executes all stages. The execution order is computed by topological
// sort up front; a dependency cycle or a reference to an unknown stage is
// reported before anything runs. A stage error aborts the run immediately,
// but results from stages that already completed remain in the returned
// context.
func (p *Pipeline) Run(initial map[string]any) (map[string]any, error) {
	ctx := make(map[string]any, len(initial)+len(p.stages))
	for k, v := range initial {
		ctx[k] = v
	}

	order, err := p.sortStages()
	if err != nil {
		return ctx, err
	}

	for _, st := range order {
		log.Printf("Running stage: %s", st.name)
		result, err := st.fn(ctx)
		if err != nil {
			return ctx, fmt.Errorf("stage %s failed: %w", st.name, err)
		}
		ctx[st.name] = result
	}

	return ctx, nil
}

// sortStages returns the stages in a dependency-respecting order (Kahn's
// algorithm). Any leftover stage after the sort is part of a cycle.
func (p *Pipeline) sortStages() ([]stage, error) {
	byName := make(map[string]stage, len(p.stages))
	for _, st := range p.stages {
		if _, ok := byName[st.name]; ok {
			return nil, fmt.Errorf("duplicate stage name: %s", st.name)
		}
		byName[st.name] = st
	}

	indegree := make(map[string]int, len(p.stages))
	dependents := make(map[string][]string, len(p.stages))
	for _, st := range p.stages {
		indegree[st.name] += 0
		for _, dep := range st.dependsOn {
			if _, ok := byName[dep]; !ok {
				return nil, fmt.Errorf("stage %s depends on unknown stage %s", st.name, dep)
			}
			indegree[st.name]++
			dependents[dep] = append(dependents[dep], st.name)
		}
	}

	// Seed the queue in registration order to keep runs deterministic.
	var ready []string
	for _, st := range p.stages {
		if indegree[st.name] == 0 {
			ready = append(ready, st.name)
		}
	}

	var order []stage
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, byName[name])
		for _, next := range dependents[name] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) != len(p.stages) {
		var stuck []string
		for name, deg := range indegree {
			if deg > 0 {
				stuck = append(stuck, name)
			}
		}
		return nil, fmt.Errorf("dependency cycle among stages: %v", stuck)
	}

	return order, nil
}
