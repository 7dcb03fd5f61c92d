package agent

import (
	"context"
	"strings"
	"testing"
)

func TestToolRegistry_RegisterAliasResolves(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&testTool{name: "file_ops"})

	if err := registry.RegisterAlias("files", "file_ops"); err != nil {
		t.Fatalf("RegisterAlias: %v", err)
	}

	found, ok := registry.Get("FILES")
	if !ok {
		t.Fatal("expected alias lookup to resolve case-insensitively")
	}
	if found.Name() != "file_ops" {
		t.Errorf("Name() = %q, want file_ops", found.Name())
	}
}

func TestToolRegistry_RegisterAliasRejectsCollision(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&testTool{name: "file_ops"})
	registry.Register(&testTool{name: "grep"})

	if err := registry.RegisterAlias("grep", "file_ops"); err == nil {
		t.Fatal("expected alias collision with an existing canonical name to fail")
	}
}

func TestToolRegistry_AsLLMToolsSortedOrder(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&testTool{name: "zeta"})
	registry.Register(&testTool{name: "alpha"})
	registry.Register(&testTool{name: "mid"})

	tools := registry.AsLLMTools()
	var names []string
	for _, tl := range tools {
		names = append(names, tl.Name())
	}
	if strings.Join(names, ",") != "alpha,mid,zeta" {
		t.Errorf("expected sorted tool order, got %v", names)
	}
}

func TestToolRegistry_FrequentlyUsedExemptFromEviction(t *testing.T) {
	registry := NewToolRegistry()
	registry.Register(&testTool{name: "file_ops"})
	registry.lastCleanup = registry.lastCleanup.Add(-2 * toolRegistryCleanupInterval)

	registry.mu.Lock()
	registry.maybeEvictLocked()
	registry.mu.Unlock()

	if _, ok := registry.Get("file_ops"); !ok {
		t.Error("expected frequently-used tool to survive eviction regardless of idle time")
	}
}

func TestSummarizeToolOutput_GrepTruncatesLongOutput(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, "match line")
	}
	content := strings.Join(lines, "\n")

	out := SummarizeToolOutput("call-1", "grep", content, false)
	if out.UIContent != content {
		t.Error("expected UI content to retain the full output")
	}
	if len(out.LLMContent) >= len(out.UIContent) {
		t.Error("expected LLM content to be condensed relative to UI content")
	}
}

func TestExecuteDual_ReflectsMissingToolAsError(t *testing.T) {
	registry := NewToolRegistry()
	out, err := registry.ExecuteDual(context.Background(), "call-1", "missing", nil)
	if err != nil {
		t.Fatalf("ExecuteDual returned error: %v", err)
	}
	if out.Success {
		t.Error("expected Success=false for a missing tool")
	}
}
