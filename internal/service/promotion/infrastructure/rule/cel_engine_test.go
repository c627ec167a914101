// internal/service/promotion/infrastructure/rule/cel_engine_test.go
package rule

import (
	"context"
	"testing"

	"storefront/internal/service/promotion/domain"
)

func newEngine(t *testing.T) *CELRuleEngine {
	t.Helper()
	e, err := NewCELRuleEngine()
	if err != nil {
		t.Fatalf("NewCELRuleEngine: %v", err)
	}
	return e
}

func TestEvaluate_EmptyRuleAlwaysPasses(t *testing.T) {
	e := newEngine(t)
	ok, err := e.Evaluate(context.Background(), "", domain.Fact{})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatal("empty rule must pass")
	}
}

func TestEvaluate_AmountThreshold(t *testing.T) {
	e := newEngine(t)
	rule := `order_amount >= 100.0`

	ok, err := e.Evaluate(context.Background(), rule, domain.Fact{"order_amount": 150.0})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatal("150 must satisfy a 100 threshold")
	}

	ok, err = e.Evaluate(context.Background(), rule, domain.Fact{"order_amount": 50.0})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Fatal("50 must not satisfy a 100 threshold")
	}
}

func TestEvaluate_CombinedConditions(t *testing.T) {
	e := newEngine(t)
	rule := `is_vip && item_count >= 2`

	ok, err := e.Evaluate(context.Background(), rule, domain.Fact{"is_vip": true, "item_count": 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatal("vip with 3 items must pass")
	}

	ok, err = e.Evaluate(context.Background(), rule, domain.Fact{"is_vip": false, "item_count": 3})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if ok {
		t.Fatal("non-vip must not pass")
	}
}

func TestEvaluate_ItemListMembership(t *testing.T) {
	e := newEngine(t)
	rule := `"sku-1" in item_ids`

	ok, err := e.Evaluate(context.Background(), rule, domain.Fact{"item_ids": []string{"sku-1", "sku-2"}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Fatal("expected membership rule to pass")
	}
}

func TestEvaluate_SyntaxErrorSurfaces(t *testing.T) {
	e := newEngine(t)
	if _, err := e.Evaluate(context.Background(), `order_amount >=`, domain.Fact{"order_amount": 1.0}); err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestEvaluate_CachesCompiledPrograms(t *testing.T) {
	e := newEngine(t)
	rule := `order_amount > 0.0`
	if _, err := e.Evaluate(context.Background(), rule, domain.Fact{"order_amount": 1.0}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	e.mu.RLock()
	_, cached := e.programs[rule]
	e.mu.RUnlock()
	if !cached {
		t.Fatal("expected compiled rule to be cached")
	}
}
