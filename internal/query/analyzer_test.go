package query

import (
	"testing"
)

func TestAnalyzer_Intent(t *testing.T) {
	a := NewAnalyzer()
	cases := []struct {
		question string
		intent   string
	}{
		{"Does this policy cover knee surgery?", IntentCoverageCheck},
		{"How do I submit a claim for reimbursement?", IntentClaimProcessing},
		{"What is the waiting period for pre-existing conditions?", IntentWaitingPeriod},
		{"What is excluded from this plan?", IntentExclusions},
		{"Is the sky blue?", IntentGeneral},
	}
	for _, tc := range cases {
		hints := a.Analyze(tc.question)
		if hints.Intent != tc.intent {
			t.Errorf("%q: expected intent %s, got %s", tc.question, tc.intent, hints.Intent)
		}
	}
}

func TestAnalyzer_Entities(t *testing.T) {
	a := NewAnalyzer()

	hints := a.Analyze("Is a 46 year old covered for a $5,000 procedure?")
	if hints.Entities["age"] != "46" {
		t.Errorf("age: got %q", hints.Entities["age"])
	}
	if hints.Entities["amount"] != "5000" {
		t.Errorf("amount: got %q", hints.Entities["amount"])
	}

	hints = a.Analyze("Is there coverage after 3 months of enrollment?")
	if hints.Entities["duration"] != "3 month" {
		t.Errorf("duration: got %q", hints.Entities["duration"])
	}
}

func TestAnalyzer_NoEntities(t *testing.T) {
	a := NewAnalyzer()
	hints := a.Analyze("What does the document say about refunds?")
	if hints.Entities != nil {
		t.Errorf("expected nil entities, got %v", hints.Entities)
	}
}

func TestAnalyzer_Keywords(t *testing.T) {
	a := NewAnalyzer()
	hints := a.Analyze("What is the grace period for premium payment?")

	want := map[string]bool{"grace": true, "period": true, "premium": true, "payment": true}
	for _, kw := range hints.Keywords {
		if !want[kw] {
			t.Errorf("unexpected keyword %q", kw)
		}
		delete(want, kw)
	}
	for kw := range want {
		t.Errorf("missing keyword %q", kw)
	}
}

func TestAnalyzer_KeywordsDeduplicated(t *testing.T) {
	a := NewAnalyzer()
	hints := a.Analyze("warranty warranty warranty claims")
	count := 0
	for _, kw := range hints.Keywords {
		if kw == "warranty" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected warranty once, got %d times", count)
	}
}
