package extract

import "testing"

func TestClean(t *testing.T) {
	got := Clean(" 94 0013\t6208\n423282801755 ")
	want := "9400136208423282801755"
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestCorrectConfusion_NumericContext(t *testing.T) {
	// Between two digits the look-alike is corrected.
	if got := CorrectConfusion("4O2", ContextNumeric); got != "402" {
		t.Errorf("expected 402, got %q", got)
	}

	// A single digit neighbor is not enough in numeric context.
	if got := CorrectConfusion("4OX", ContextNumeric); got != "4OX" {
		t.Errorf("expected 4OX unchanged, got %q", got)
	}

	if got := CorrectConfusion("9l8B2", ContextNumeric); got != "91882" {
		t.Errorf("expected 91882, got %q", got)
	}
}

func TestCorrectConfusion_MixedContext(t *testing.T) {
	// One digit neighbor suffices in mixed context.
	if got := CorrectConfusion("4OX", ContextMixed); got != "40X" {
		t.Errorf("expected 40X, got %q", got)
	}

	// No digit neighbor leaves the character alone.
	if got := CorrectConfusion("AOX", ContextMixed); got != "AOX" {
		t.Errorf("expected AOX unchanged, got %q", got)
	}
}

func TestCorrectConfusion_NonConfusable(t *testing.T) {
	if got := CorrectConfusion("9X9", ContextNumeric); got != "9X9" {
		t.Errorf("expected 9X9 unchanged, got %q", got)
	}
}

func TestOrderNumber(t *testing.T) {
	p := NewPolicy()

	got := p.OrderNumber("Tracking: 94 0013 6208 4232 8280 1755", `9\d{21}`)
	if got != "9400136208423282801755" {
		t.Errorf("OrderNumber() = %q", got)
	}
}

func TestOrderNumber_CorrectsLookAlikes(t *testing.T) {
	p := NewPolicy()

	// The O sits between digits of a mostly-numeric string and is read as 0.
	got := p.OrderNumber("94O0136208423282801755", `9\d{21}`)
	if got != "9400136208423282801755" {
		t.Errorf("OrderNumber() = %q", got)
	}
}

func TestOrderNumber_CorrectionDisabled(t *testing.T) {
	p := &Policy{CorrectionEnabled: false}

	if got := p.OrderNumber("94O0136208423282801755", `9\d{21}`); got != "" {
		t.Errorf("expected no match with correction disabled, got %q", got)
	}
}

func TestOrderNumber_NoMatch(t *testing.T) {
	p := NewPolicy()

	if got := p.OrderNumber("no numbers here", `9\d{21}`); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}

func TestOrderNumber_DefaultPattern(t *testing.T) {
	p := NewPolicy()

	if got := p.OrderNumber("ref: AB-1234#X !", ""); got != "AB-1234#X" {
		t.Errorf("OrderNumber() = %q", got)
	}
}

func TestOrderNumber_BadPattern(t *testing.T) {
	p := NewPolicy()

	if got := p.OrderNumber("9400136208423282801755", `([`); got != "" {
		t.Errorf("expected empty result for invalid pattern, got %q", got)
	}
}

func TestOrderNumber_Idempotent(t *testing.T) {
	p := NewPolicy()

	first := p.OrderNumber("GFUS O1O2 0467 9356 16", `GFUS[0-9O]{14}`)
	second := p.OrderNumber(first, `GFUS[0-9O]{14}`)
	if first != second {
		t.Errorf("not idempotent: %q then %q", first, second)
	}
}
