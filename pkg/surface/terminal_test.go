package surface_test

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/claimscore/claimscore/pkg/claim"
	"github.com/claimscore/claimscore/pkg/scoring"
	"github.com/claimscore/claimscore/pkg/surface"
)

func sampleResult() *scoring.BatchResult {
	return &scoring.BatchResult{
		Claims: []scoring.ClaimResult{
			{
				Row: 0, ClaimID: "CLM-0001", ProviderID: "RS001",
				RawScore: 79, FraudScore: 100, Label: claim.LabelHigh,
				Contributions: []scoring.Contribution{
					{Key: scoring.KeyBiometricMissing, Name: "Biometric missing", Tier: scoring.TierCritical, Points: 20},
					{Key: scoring.KeyAmountExceedsTariff, Name: "Amount exceeds tariff", Tier: scoring.TierCritical, Points: 16},
				},
			},
			{
				Row: 1, ProviderID: "RS002",
				RawScore: 36, FraudScore: 45.57, Label: claim.LabelMedium,
				Contributions: []scoring.Contribution{
					{Key: scoring.KeyBiometricMissing, Name: "Biometric missing", Tier: scoring.TierCritical, Points: 20},
					{Key: scoring.KeyAmountExceedsTariff, Name: "Amount exceeds tariff", Tier: scoring.TierCritical, Points: 16},
				},
			},
			{Row: 2, ClaimID: "CLM-0003", ProviderID: "RS002", Label: claim.LabelNormal},
		},
		Summary: scoring.Summary{
			Claims:      3,
			ByLabel:     map[claim.Label]int{claim.LabelHigh: 1, claim.LabelMedium: 1, claim.LabelNormal: 1},
			MaxRawScore: 79,
			MeanScore:   48.52,
			TopRules: []scoring.RuleCount{
				{Key: scoring.KeyAmountExceedsTariff, Name: "Amount exceeds tariff", Fired: 2, Points: 32},
				{Key: scoring.KeyBiometricMissing, Name: "Biometric missing", Fired: 2, Points: 40},
			},
			Hotspots: []scoring.Hotspot{
				{ProviderID: "RS001", Reason: "1 of 1 claims labeled HIGH", HighClaims: 1, Claims: 1, MeanScore: 100,
					RuleKeys: []string{scoring.KeyAmountExceedsTariff, scoring.KeyBiometricMissing}},
			},
		},
		Thresholds:    scoring.DefaultThresholds(),
		Normalization: scoring.NormalizeBatch,
	}
}

func TestTerminalRenderer_BasicOutput(t *testing.T) {
	// Set NO_COLOR to avoid ANSI codes in test comparison
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	output := buf.String()

	for _, want := range []string{
		"Claimscore: 3 claims scored",
		"HIGH 1 / MEDIUM 1 / NORMAL 1",
		"max raw 79.0, mean 48.52",
		"thresholds 66/40",
		"Top rules:",
		"Amount exceeds tariff",
		"Hotspots:",
		"RS001: 1 of 1 claims labeled HIGH",
		"Riskiest claims:",
		"CLM-0001",
		"row 1",
		"Biometric missing +20",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "CLM-0003") {
		t.Error("NORMAL claims should not be listed as risky")
	}
}

func TestTerminalRenderer_NoRulesFired(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	result := &scoring.BatchResult{
		Claims:     []scoring.ClaimResult{{Row: 0, ProviderID: "RS001", Label: claim.LabelNormal}},
		Summary:    scoring.Summary{Claims: 1, ByLabel: map[claim.Label]int{claim.LabelNormal: 1}},
		Thresholds: scoring.DefaultThresholds(),
	}

	if err := r.Render(&buf, result); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	output := buf.String()
	if !strings.Contains(output, "No rules fired") {
		t.Error("expected 'No rules fired' message")
	}
	if strings.Contains(output, "Riskiest claims") {
		t.Error("did not expect a riskiest-claims section")
	}
}

func TestTerminalRenderer_HideClaims(t *testing.T) {
	os.Setenv("NO_COLOR", "1")
	defer os.Unsetenv("NO_COLOR")

	var buf bytes.Buffer
	if err := (&surface.TerminalRenderer{TopClaims: -1}).Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(buf.String(), "Riskiest claims") {
		t.Error("negative TopClaims should hide the claims section")
	}
}

func TestTerminalRenderer_ColorRespected(t *testing.T) {
	// Without NO_COLOR, output should have ANSI codes
	os.Unsetenv("NO_COLOR")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[") {
		t.Error("expected ANSI escape codes when NO_COLOR is not set")
	}
}

func TestMarkdownRenderer(t *testing.T) {
	report := (&surface.MarkdownRenderer{}).BuildReport(sampleResult())

	for _, want := range []string{
		"## Claimscore: 3 claims, 1 HIGH",
		"| :red_circle: HIGH | 1 |",
		"| Amount exceeds tariff (`amount_exceeds_tariff`) | 2 | 32 |",
		"- **RS001**: 1 of 1 claims labeled HIGH",
		"### Riskiest Claims",
		"**CLM-0001** (RS001) 100.00",
		"Biometric missing +20 _critical_",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("expected %q in report:\n%s", want, report)
		}
	}
	if strings.Contains(report, "CLM-0003") {
		t.Error("NORMAL claims should not be listed")
	}
}

func TestJSONRenderer(t *testing.T) {
	var buf bytes.Buffer
	if err := (&surface.JSONRenderer{SummaryOnly: true}).Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	var decoded scoring.BatchResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Claims) != 0 {
		t.Errorf("summary-only output should omit claims, got %d", len(decoded.Claims))
	}
	if decoded.Summary.ByLabel[claim.LabelHigh] != 1 || decoded.Thresholds.High != 66 {
		t.Errorf("unexpected decoded summary %+v", decoded)
	}

	buf.Reset()
	if err := (&surface.JSONRenderer{}).Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), `"fraud_label": "HIGH"`) {
		t.Errorf("expected per-claim labels in full output")
	}
}
