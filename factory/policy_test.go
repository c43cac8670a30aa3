package factory_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/costing-engine/factory"
	"github.com/warp/costing-engine/finance"
)

func TestPoliciesForYear(t *testing.T) {
	policies := factory.PoliciesForYear(2026)
	if len(policies) != 3 {
		t.Fatalf("expected one policy per employee type, got %d", len(policies))
	}

	byType := make(map[finance.EmployeeType]finance.CostPolicy)
	for _, p := range policies {
		if p.ApplyYear != 2026 {
			t.Errorf("expected apply year 2026, got %d", p.ApplyYear)
		}
		byType[p.EmployeeType] = p
	}

	regular, ok := byType[finance.EmployeeRegular]
	if !ok {
		t.Fatal("missing regular policy")
	}
	if !regular.OverheadRate.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("regular overhead: got %s", regular.OverheadRate)
	}
	if !regular.SGARate.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("regular sga: got %s", regular.SGARate)
	}
}

func TestPolicy(t *testing.T) {
	p := factory.Policy(2027, finance.EmployeeContract, "0.07", "0.02")
	if p.ApplyYear != 2027 || p.EmployeeType != finance.EmployeeContract {
		t.Errorf("key wrong: %+v", p)
	}
	if !p.OverheadRate.Equal(decimal.RequireFromString("0.07")) {
		t.Errorf("overhead wrong: %s", p.OverheadRate)
	}
}
