package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"github.com/seedwatch/seedwatch/datasource"
	"github.com/seedwatch/seedwatch/internal/logger"
	"github.com/seedwatch/seedwatch/notify"
	"github.com/seedwatch/seedwatch/ontology"
)

// RuleSource provides the business rules to evaluate. Satisfied by
// *ontology.Store; tests inject fixture implementations.
type RuleSource interface {
	BusinessRules(priority ontology.Priority) []ontology.BusinessRule
}

// Engine runs every business rule against a rule context and dispatches
// alerts for the rules that trigger. One long-lived instance per process,
// constructed explicitly and injected into callers.
type Engine struct {
	rules      RuleSource
	builder    *ContextBuilder
	dispatcher *Dispatcher
	predicates map[string]Predicate
	env        *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program // rule ID -> compiled extension expression
}

// NewEngine creates an engine evaluating rules from the given source.
// source may be nil, in which case only ExecuteAllRules with a
// caller-supplied context is available.
func NewEngine(rules RuleSource, source datasource.Source, sink notify.Sink, config DispatcherConfig) (*Engine, error) {
	env, err := newCELEnv()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		rules:      rules,
		dispatcher: NewDispatcher(sink, config),
		predicates: defaultPredicates(),
		env:        env,
		programs:   make(map[string]cel.Program),
	}
	if source != nil {
		e.builder = NewContextBuilder(source)
	}

	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// RegisterPredicate binds a predicate function to a rule ID, replacing any
// existing binding. Must be called before evaluation starts.
func (e *Engine) RegisterPredicate(ruleID string, p Predicate) {
	e.predicates[ruleID] = p
}

// Reload recompiles the extension expressions of rules that have no
// registered predicate. Call after the rule source reloads.
func (e *Engine) Reload() error {
	programs := make(map[string]cel.Program)
	for _, rule := range e.rules.BusinessRules("") {
		if _, ok := e.predicates[rule.ID]; ok {
			continue
		}
		if rule.Expression == "" {
			continue
		}
		prog, err := compileExpression(e.env, rule.Expression)
		if err != nil {
			return fmt.Errorf("failed to compile expression for rule %s: %w", rule.ID, err)
		}
		programs[rule.ID] = prog
	}

	e.mu.Lock()
	e.programs = programs
	e.mu.Unlock()
	return nil
}

// ExecuteAllRules evaluates every rule against the supplied context and
// dispatches alerts for the ones that trigger. One rule's failure never
// aborts the batch; it is recorded in that rule's result. If the context
// deadline expires mid-pass the partial result list is returned together
// with the context error.
func (e *Engine) ExecuteAllRules(ctx context.Context, rc *RuleContext) ([]RuleResult, error) {
	rules := e.rules.BusinessRules("")
	idx := newContextIndex(rc)

	results := make([]RuleResult, 0, len(rules))
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			logger.Warn("evaluation pass interrupted", "evaluated", len(results), "total", len(rules))
			return results, fmt.Errorf("evaluation pass incomplete: %w", err)
		}

		result := e.executeRule(ctx, rule, rc, idx)
		if result.Triggered {
			logger.Info("rule triggered", "rule_id", rule.ID, "matched", len(result.MatchedRecords))
		}
		results = append(results, result)
	}

	triggered := 0
	for _, r := range results {
		if r.Triggered {
			triggered++
		}
	}
	logger.Info("evaluation pass complete", "rules", len(results), "triggered", triggered)
	return results, nil
}

// executeRule evaluates one rule with full error isolation, then dispatches
// its alerts when it triggered.
func (e *Engine) executeRule(ctx context.Context, rule ontology.BusinessRule, rc *RuleContext, idx *contextIndex) (result RuleResult) {
	result = RuleResult{RuleID: rule.ID, RuleName: rule.Name}

	defer func() {
		if r := recover(); r != nil {
			result.Triggered = false
			result.MatchedRecords = nil
			result.ActionsExecuted = nil
			result.ErrorMessage = fmt.Sprintf("rule evaluation panicked: %v", r)
			logger.Error("rule evaluation panicked", "rule_id", rule.ID, "panic", r)
		}
	}()

	matched, err := e.evaluate(rule, rc, idx)
	if err != nil {
		result.ErrorMessage = err.Error()
		logger.Error("rule evaluation failed", "rule_id", rule.ID, "error", err)
		return result
	}
	if len(matched) == 0 {
		return result
	}

	result.Triggered = true
	result.MatchedRecords = matched
	result.ActionsExecuted = e.dispatcher.Dispatch(ctx, rule, matched)
	return result
}

// evaluate dispatches by rule ID to the registered predicate, falling back
// to the rule's compiled extension expression.
func (e *Engine) evaluate(rule ontology.BusinessRule, rc *RuleContext, idx *contextIndex) ([]MatchedRecord, error) {
	if predicate, ok := e.predicates[rule.ID]; ok {
		return predicate(rc, idx), nil
	}

	e.mu.RLock()
	prog, ok := e.programs[rule.ID]
	e.mu.RUnlock()
	if ok {
		return evalExpression(prog, rc, idx)
	}

	if rule.Expression != "" {
		return nil, fmt.Errorf("rule %s expression is not compiled", rule.ID)
	}

	// Condition text is documentation only; a rule with neither a
	// predicate nor an expression cannot match anything.
	logger.Warn("no predicate registered for rule", "rule_id", rule.ID)
	return nil, nil
}

// ExecuteRulesWithLiveData builds a context from the operational data
// source and runs a full evaluation pass over it.
func (e *Engine) ExecuteRulesWithLiveData(ctx context.Context, lookbackDays int) ([]RuleResult, error) {
	if e.builder == nil {
		return nil, fmt.Errorf("no operational data source configured")
	}

	runID := uuid.NewString()
	logger.Info("live evaluation pass starting", "run_id", runID, "lookback_days", lookbackDays)

	rc, err := e.builder.Build(ctx, lookbackDays)
	if err != nil {
		return nil, err
	}
	logger.Info("live context built",
		"run_id", runID,
		"deliveries", len(rc.DeliveryEntries),
		"campaign_influencers", len(rc.CampaignInfluencers),
		"campaigns", len(rc.Campaigns),
		"contents", len(rc.Contents))

	return e.ExecuteAllRules(ctx, rc)
}
