// Copyright (C) 2026 Plotweave
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rules is the fail-open lint layer over story graphs. Rules read
// a snapshot and report violations; fix generators propose — never apply —
// corrective patches. One misbehaving rule is logged and skipped, never
// fatal to a pass.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/plotweave/plotweave/internal/logger"
	"github.com/plotweave/plotweave/internal/story"
)

var (
	log     *zerolog.Logger
	logOnce sync.Once
)

func getLog() *zerolog.Logger {
	logOnce.Do(func() {
		l := logger.GetRulesLogger()
		log = &l
	})
	return log
}

// Severity separates blocking problems from advisories.
type Severity string

const (
	SeverityHard Severity = "hard" // blocks publishing the story state
	SeveritySoft Severity = "soft" // advisory
)

// Violation is one finding of one rule. Its id is a content hash of the
// rule id, node id and context, so re-linting an unchanged graph region
// reproduces the same id.
type Violation struct {
	ID             string   `json:"id"`
	RuleID         string   `json:"rule_id"`
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Message        string   `json:"message"`
	NodeID         string   `json:"node_id,omitempty"`
	Field          string   `json:"field,omitempty"`
	RelatedNodeIDs []string `json:"related_node_ids,omitempty"`
	Context        string   `json:"context,omitempty"`
}

// NewViolation builds a violation with its deterministic identity.
func NewViolation(rule Rule, nodeID, field, context, message string) Violation {
	return Violation{
		ID:       violationID(rule.ID(), nodeID, context),
		RuleID:   rule.ID(),
		Severity: rule.Severity(),
		Category: rule.Category(),
		Message:  message,
		NodeID:   nodeID,
		Field:    field,
		Context:  context,
	}
}

func violationID(ruleID, nodeID, context string) string {
	sum := sha256.Sum256([]byte(ruleID + "\x00" + nodeID + "\x00" + context))
	return hex.EncodeToString(sum[:8])
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", r)
}

// Fix is a proposed corrective patch for one violation, paired with the
// patch that undoes it. Proposing is free; applying goes through the
// staleness-checked Apply path.
type Fix struct {
	ID              string       `json:"id"`
	ViolationID     string       `json:"violation_id"`
	RuleID          string       `json:"rule_id"`
	Description     string       `json:"description,omitempty"`
	Patch           *story.Patch `json:"patch"`
	InversePatch    *story.Patch `json:"inverse_patch,omitempty"`
	AffectedNodeIDs []string     `json:"affected_node_ids,omitempty"`
	DependsOn       []string     `json:"depends_on,omitempty"`
}

// Rule evaluates one concern over a graph. Implementations must be pure
// with respect to the graph and must respect the scope handed to them.
type Rule interface {
	ID() string
	Severity() Severity
	Category() string
	Evaluate(g *story.Graph, scope *Scope) []Violation
}

// FixSuggester is the optional second interface of a rule that can
// propose fixes. A (nil, nil) return means "no fix for this one".
type FixSuggester interface {
	SuggestFix(g *story.Graph, v Violation) (*Fix, error)
}

// ErrDuplicateRule is returned when a rule id is registered twice.
var ErrDuplicateRule = errors.New("rule id already registered")

// Registry is an explicit collection of rules. There is no process-global
// registry: callers construct one, hand it to the engine, and throw it
// away when done.
type Registry struct {
	rules map[string]Rule
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[string]Rule)}
}

// Register adds a rule, rejecting duplicate ids.
func (r *Registry) Register(rule Rule) error {
	if rule == nil || rule.ID() == "" {
		return errors.New("rule must have an id")
	}
	if _, exists := r.rules[rule.ID()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID())
	}
	r.rules[rule.ID()] = rule
	r.order = append(r.order, rule.ID())
	return nil
}

// Get returns the rule with the given id.
func (r *Registry) Get(id string) (Rule, bool) {
	rule, ok := r.rules[id]
	return rule, ok
}

// Rules returns every rule in registration order.
func (r *Registry) Rules() []Rule {
	out := make([]Rule, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.rules[id])
	}
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.order)
}
