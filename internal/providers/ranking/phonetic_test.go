package ranking

import "testing"

func TestPhonetic_Codes(t *testing.T) {
	cases := map[string]string{
		"Robert":       "R163",
		"Rupert":       "R163",
		"Tymczak":      "T522",
		"Ashcraft":     "A261",
		"Bela Vista":   "B412",
		"Bella Vista":  "B412",
		"Savassi":      "S120",
		"São João":     "S200",
		"":             "",
		"123":          "",
	}
	for in, want := range cases {
		if got := Phonetic(in); got != want {
			t.Fatalf("Phonetic(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestPhonetic_UsesEveryWord(t *testing.T) {
	if SameSound("Vila Mariana", "Vila Madalena") {
		t.Fatalf("expected different neighborhoods sharing a first word not to match")
	}
}

func TestSameSound_EmptyNeverMatches(t *testing.T) {
	if SameSound("", "") {
		t.Fatalf("expected empty names not to match")
	}
}

func TestFold(t *testing.T) {
	if got := Fold("  São   Paulo "); got != "SAO PAULO" {
		t.Fatalf("unexpected fold %q", got)
	}
	if !SameText("Jardim Paulistânia", "jardim paulistania") {
		t.Fatalf("expected accent-insensitive match")
	}
}

func TestCategoryMatches(t *testing.T) {
	tokens := NormalizeCategories([]string{"up-holstery", " "})
	if len(tokens) != 1 || tokens[0] != "UPHOLSTERY" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
	if !CategoryMatches("Furniture Upholstery", tokens) {
		t.Fatalf("expected substring match after normalization")
	}
	if CategoryMatches("Plumbing", tokens) {
		t.Fatalf("expected non-matching category to be rejected")
	}
}
