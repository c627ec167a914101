// internal/service/promotion/infrastructure/rule/cel_engine.go
package rule

import (
	"context"
	"sync"

	"github.com/google/cel-go/cel"
	pkgerrors "github.com/pkg/errors"

	"storefront/internal/service/promotion/domain"
)

// CELRuleEngine 是 domain.RuleEngine 的 cel-go 实现。
// 模板上的适用规则写成 CEL 表达式, 对下单上下文求值,
// 编译结果按表达式缓存, 同一条规则只编译一次。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewCELRuleEngine() (*CELRuleEngine, error) {
	// 规则里可见的变量就是 Fact 的字段约定。
	env, err := cel.NewEnv(
		cel.Variable("user_id", cel.StringType),
		cel.Variable("order_amount", cel.DoubleType),
		cel.Variable("item_ids", cel.ListType(cel.StringType)),
		cel.Variable("item_count", cel.IntType),
		cel.Variable("is_vip", cel.BoolType),
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "build cel environment")
	}
	return &CELRuleEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

func (e *CELRuleEngine) Evaluate(_ context.Context, rule string, fact domain.Fact) (bool, error) {
	if rule == "" {
		return true, nil
	}
	prg, err := e.compile(rule)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]interface{}(fact))
	if err != nil {
		return false, pkgerrors.Wrap(err, "evaluate eligibility rule")
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, pkgerrors.Errorf("eligibility rule %q did not evaluate to a boolean", rule)
	}
	return ok, nil
}

func (e *CELRuleEngine) compile(rule string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[rule]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, pkgerrors.Wrapf(issues.Err(), "compile eligibility rule %q", rule)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "build program for rule %q", rule)
	}

	e.mu.Lock()
	e.programs[rule] = prg
	e.mu.Unlock()
	return prg, nil
}

var _ domain.RuleEngine = (*CELRuleEngine)(nil)
