package match

import (
	"image"
	"image/color"
	"testing"
)

// blackSquarePage returns a white 900x900 page with a black rectangle large
// enough for a full template window to land inside it.
func blackSquarePage() image.Image {
	page := image.NewGray(image.Rect(0, 0, 900, 900))
	for i := range page.Pix {
		page.Pix[i] = 255
	}
	for y := 100; y < 400; y++ {
		for x := 100; x < 400; x++ {
			page.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	return page
}

func blackTemplate() *Template {
	img := image.NewGray(image.Rect(0, 0, 180, 180))
	return &Template{Label: "black", Image: img, Mode: ModeDiff, Threshold: DefaultDiffThreshold}
}

func TestPresent_Diff(t *testing.T) {
	m := New(nil)

	if !m.Present(blackSquarePage(), blackTemplate()) {
		t.Error("expected template to match inside the black region")
	}
}

func TestPresent_Diff_NoMatch(t *testing.T) {
	m := New(nil)

	page := image.NewGray(image.Rect(0, 0, 900, 900))
	for i := range page.Pix {
		page.Pix[i] = 255
	}

	if m.Present(page, blackTemplate()) {
		t.Error("black template must not match a white page")
	}
}

func TestPresent_TemplateLargerThanPage(t *testing.T) {
	m := New(nil)

	// After normalization the template is taller than the page.
	page := image.NewGray(image.Rect(0, 0, 900, 60))
	tplImg := image.NewGray(image.Rect(0, 0, 180, 400))
	tpl := &Template{Label: "tall", Image: tplImg, Mode: ModeDiff, Threshold: DefaultDiffThreshold}

	if m.Present(page, tpl) {
		t.Error("oversized template must not match")
	}
}

func TestBestScore_Diff(t *testing.T) {
	m := New(nil)

	score := m.BestScore(blackSquarePage(), blackTemplate())
	if score > DefaultDiffThreshold {
		t.Errorf("expected matching score, got %f", score)
	}

	white := image.NewGray(image.Rect(0, 0, 900, 900))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	score = m.BestScore(white, blackTemplate())
	if score <= DefaultDiffThreshold {
		t.Errorf("expected non-matching score, got %f", score)
	}
}

func TestBestScore_OversizedTemplateReportsWorst(t *testing.T) {
	m := New(nil)
	page := image.NewGray(image.Rect(0, 0, 900, 60))
	tplImg := image.NewGray(image.Rect(0, 0, 180, 400))

	diff := &Template{Image: tplImg, Mode: ModeDiff, Threshold: DefaultDiffThreshold}
	if got := m.BestScore(page, diff); got != WorstDiffScore {
		t.Errorf("expected worst diff score, got %f", got)
	}

	ncc := &Template{Image: tplImg, Mode: ModeNCC, Threshold: DefaultNCCThreshold}
	if got := m.BestScore(page, ncc); got != WorstNCCScore {
		t.Errorf("expected worst ncc score, got %f", got)
	}
}

func TestPresent_NCC(t *testing.T) {
	m := New(nil)

	// Template: left half black, right half white.
	tplImg := image.NewGray(image.Rect(0, 0, 180, 180))
	for y := 0; y < 180; y++ {
		for x := 90; x < 180; x++ {
			tplImg.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	tpl := &Template{Label: "halves", Image: tplImg, Mode: ModeNCC, Threshold: DefaultNCCThreshold}

	// Page: the same pattern pasted on a step-aligned grid position.
	page := image.NewGray(image.Rect(0, 0, 900, 900))
	for y := 0; y < 180; y++ {
		for x := 0; x < 180; x++ {
			page.SetGray(120+x, 120+y, tplImg.GrayAt(x, y))
		}
	}

	if !m.Present(page, tpl) {
		t.Error("expected NCC match at the pasted window")
	}
}

func TestPresent_NCC_UniformPage(t *testing.T) {
	m := New(nil)

	tplImg := image.NewGray(image.Rect(0, 0, 180, 180))
	for y := 0; y < 180; y++ {
		for x := 90; x < 180; x++ {
			tplImg.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	tpl := &Template{Image: tplImg, Mode: ModeNCC, Threshold: DefaultNCCThreshold}

	// Every window on a uniform page has zero variance; the denominator
	// guard reports the worst score instead of dividing by zero.
	page := image.NewGray(image.Rect(0, 0, 900, 900))
	if m.Present(page, tpl) {
		t.Error("uniform page must not match")
	}
}

func TestTemplateMatches(t *testing.T) {
	diff := &Template{Mode: ModeDiff, Threshold: 18}
	if !diff.Matches(10) || diff.Matches(20) {
		t.Error("diff threshold comparison inverted")
	}

	ncc := &Template{Mode: ModeNCC, Threshold: 0.75}
	if !ncc.Matches(0.9) || ncc.Matches(0.5) {
		t.Error("ncc threshold comparison inverted")
	}
}

func TestLoadTemplate_DefaultThresholds(t *testing.T) {
	if _, err := LoadTemplate("does-not-exist.png", "x", ModeDiff, 0); err == nil {
		t.Error("expected error for missing template file")
	}
}
