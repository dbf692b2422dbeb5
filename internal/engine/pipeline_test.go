package engine

import (
	"errors"
	"strings"
	"testing"
)

func TestPipelineRespectsDependencies(t *testing.T) {
	var order []string

	p := NewPipeline()
	// Registered out of dependency order on purpose.
	p.AddStage("report", func(ctx map[string]any) (any, error) {
		order = append(order, "report")
		return ctx["aggregate"].(int) + 1, nil
	}, "aggregate")
	p.AddStage("aggregate", func(ctx map[string]any) (any, error) {
		order = append(order, "aggregate")
		return ctx["parse"].(int) + 1, nil
	}, "parse")
	p.AddStage("parse", func(ctx map[string]any) (any, error) {
		order = append(order, "parse")
		return 1, nil
	})

	ctx, err := p.Run(nil)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if strings.Join(order, ",") != "parse,aggregate,report" {
		t.Errorf("Execution order = %v", order)
	}
	if ctx["report"] != 3 {
		t.Errorf("ctx[report] = %v, want 3", ctx["report"])
	}
}

func TestPipelineDetectsCycle(t *testing.T) {
	p := NewPipeline()
	ran := false
	p.AddStage("a", func(ctx map[string]any) (any, error) { ran = true; return nil, nil }, "b")
	p.AddStage("b", func(ctx map[string]any) (any, error) { ran = true; return nil, nil }, "a")

	if _, err := p.Run(nil); err == nil {
		t.Fatal("Expected a cycle error")
	}
	if ran {
		t.Error("No stage should execute when a cycle is detected")
	}
}

func TestPipelineUnknownDependency(t *testing.T) {
	p := NewPipeline()
	p.AddStage("a", func(ctx map[string]any) (any, error) { return nil, nil }, "missing")

	if _, err := p.Run(nil); err == nil {
		t.Fatal("Expected an unknown-dependency error")
	}
}

func TestPipelineStageFailureAbortsRun(t *testing.T) {
	p := NewPipeline()
	p.AddStage("first", func(ctx map[string]any) (any, error) { return "done", nil })
	p.AddStage("second", func(ctx map[string]any) (any, error) {
		return nil, errors.New("stage blew up")
	}, "first")
	thirdRan := false
	p.AddStage("third", func(ctx map[string]any) (any, error) {
		thirdRan = true
		return nil, nil
	}, "second")

	ctx, err := p.Run(nil)
	if err == nil {
		t.Fatal("Expected the run to fail")
	}
	if thirdRan {
		t.Error("Stages after the failure must not run")
	}
	// Results from completed stages remain visible.
	if ctx["first"] != "done" {
		t.Errorf("ctx[first] = %v, want done", ctx["first"])
	}
}

func TestPipelineInitialContext(t *testing.T) {
	p := NewPipeline()
	p.AddStage("double", func(ctx map[string]any) (any, error) {
		return ctx["seed"].(int) * 2, nil
	})

	ctx, err := p.Run(map[string]any{"seed": 21})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if ctx["double"] != 42 {
		t.Errorf("ctx[double] = %v, want 42", ctx["double"])
	}
}

func TestPipelineDuplicateStage(t *testing.T) {
	p := NewPipeline()
	p.AddStage("a", func(ctx map[string]any) (any, error) { return nil, nil })
	p.AddStage("a", func(ctx map[string]any) (any, error) { return nil, nil })

	if _, err := p.Run(nil); err == nil {
		t.Fatal("Expected a duplicate-stage error")
	}
}
