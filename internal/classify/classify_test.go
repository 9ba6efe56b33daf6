package classify

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/parcelops/labelsplit/internal/extract"
	"github.com/parcelops/labelsplit/internal/imaging"
	"github.com/parcelops/labelsplit/internal/match"
	"github.com/parcelops/labelsplit/internal/ocr"
)

// fakeBackend replays canned recognition results in call order.
type fakeBackend struct {
	mu    sync.Mutex
	texts []string
	calls int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Recognize(_ context.Context, _ image.Image, _ ocr.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.texts) {
		f.calls++
		return "", nil
	}
	text := f.texts[f.calls]
	f.calls++
	return text, nil
}

func (f *fakeBackend) Release() {}

func newTestClassifier(t *testing.T, mode Mode, regions []imaging.Box, tpls map[string]*match.Template, texts []string) (*Classifier, *fakeBackend) {
	t.Helper()

	backend := &fakeBackend{texts: texts}
	service := ocr.NewService(backend, extract.NewPolicy(), nil)

	c, err := New(&Config{
		Service:        service,
		Mode:           mode,
		Regions:        regions,
		Templates:      tpls,
		GenericPattern: extract.DefaultPattern,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, backend
}

// bandBackend returns canned text keyed by the width of the cropped region,
// so tests can tell which configured box a strategy actually read.
type bandBackend struct {
	mu      sync.Mutex
	byWidth map[int]string
	calls   int
}

func (b *bandBackend) Name() string { return "band" }

func (b *bandBackend) Recognize(_ context.Context, img image.Image, _ ocr.Options) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	return b.byWidth[img.Bounds().Dx()], nil
}

func (b *bandBackend) Release() {}

func newBandClassifier(t *testing.T, mode Mode, regions []imaging.Box, byWidth map[int]string) *Classifier {
	t.Helper()

	service := ocr.NewService(&bandBackend{byWidth: byWidth}, extract.NewPolicy(), nil)
	c, err := New(&Config{
		Service:        service,
		Mode:           mode,
		Regions:        regions,
		GenericPattern: extract.DefaultPattern,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func whitePage() image.Image {
	img := image.NewGray(image.Rect(0, 0, 900, 900))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	return img
}

func threeRegions() []imaging.Box {
	return []imaging.Box{
		{X: 0, Y: 0, Width: 100, Height: 50},
		{X: 0, Y: 100, Width: 100, Height: 50},
		{X: 0, Y: 200, Width: 100, Height: 50},
	}
}

func TestCarrierAccept(t *testing.T) {
	carriers := Carriers()
	usps, gofo, uni := carriers[0], carriers[1], carriers[2]

	if got := usps.Accept("9400136208423282801755"); got != "9400136208423282801755" {
		t.Errorf("USPS Accept() = %q", got)
	}
	if got := usps.Accept("8400136208423282801755"); got != "" {
		t.Errorf("USPS must reject wrong lead character, got %q", got)
	}

	if got := gofo.Accept("GFUSO1O20467935616"); got != "GFUS01020467935616" {
		t.Errorf("GOFO Accept() = %q, want corrected digits", got)
	}
	if got := gofo.Accept("GFUSO1O2046793561X"); got != "" {
		t.Errorf("GOFO must discard candidates failing revalidation, got %q", got)
	}

	if got := uni.Accept("UUS1234567890ABCDEF0"); got == "" {
		t.Error("Uni rejected a valid candidate")
	}
	if got := uni.Accept(""); got != "" {
		t.Errorf("empty candidate must stay empty, got %q", got)
	}
}

func TestVote_FirstCarrierWins(t *testing.T) {
	c, backend := newTestClassifier(t, ModeSmart, threeRegions(), nil,
		[]string{"9400136208423282801755"})

	carrier, order := c.OrderNumber(context.Background(), whitePage())
	if carrier != CarrierUSPS {
		t.Errorf("expected USPS, got %q", carrier)
	}
	if order != "9400136208423282801755" {
		t.Errorf("unexpected order %q", order)
	}
	if backend.calls != 1 {
		t.Errorf("expected classification to stop after the first accepted carrier, got %d calls", backend.calls)
	}
}

func TestVote_PriorityOrder(t *testing.T) {
	// USPS region yields nothing; GOFO wins before Uni is consulted.
	c, backend := newTestClassifier(t, ModeSmart, threeRegions(), nil,
		[]string{"", "GFUS01020467935616"})

	carrier, order := c.OrderNumber(context.Background(), whitePage())
	if carrier != CarrierGOFO {
		t.Errorf("expected GOFO, got %q", carrier)
	}
	if order != "GFUS01020467935616" {
		t.Errorf("unexpected order %q", order)
	}
	if backend.calls != 2 {
		t.Errorf("expected 2 calls, got %d", backend.calls)
	}
}

func TestVote_FallsBackToGenericPattern(t *testing.T) {
	// No carrier pattern matches anywhere; the primary region is recognized
	// again with the generic pattern.
	c, backend := newTestClassifier(t, ModeSmart, threeRegions(), nil,
		[]string{"???", "???", "???", "ORDER#12345"})

	carrier, order := c.OrderNumber(context.Background(), whitePage())
	if carrier != "" {
		t.Errorf("expected no carrier, got %q", carrier)
	}
	if order != "ORDER#12345" {
		t.Errorf("unexpected order %q", order)
	}
	if backend.calls != 4 {
		t.Errorf("expected 4 calls, got %d", backend.calls)
	}
}

func TestVote_BandAssignment(t *testing.T) {
	// Boxes are configured primary, Uni band, GOFO band. Distinct widths let
	// the backend reveal which box each carrier read.
	regions := []imaging.Box{
		{X: 0, Y: 0, Width: 100, Height: 50},
		{X: 0, Y: 100, Width: 110, Height: 50},
		{X: 0, Y: 200, Width: 120, Height: 50},
	}

	c := newBandClassifier(t, ModeSmart, regions, map[int]string{
		120: "GFUS01020467935616",
	})
	carrier, order := c.OrderNumber(context.Background(), whitePage())
	if carrier != CarrierGOFO {
		t.Errorf("expected GOFO from the third box, got %q", carrier)
	}
	if order != "GFUS01020467935616" {
		t.Errorf("unexpected order %q", order)
	}

	c = newBandClassifier(t, ModeSmart, regions, map[int]string{
		110: "UUSXT94D34YF55WC7QA",
	})
	carrier, order = c.OrderNumber(context.Background(), whitePage())
	if carrier != CarrierUni {
		t.Errorf("expected Uni from the second box, got %q", carrier)
	}
	if order != "UUSXT94D34YF55WC7QA" {
		t.Errorf("unexpected order %q", order)
	}
}

func TestProbe_MarkerKeepsFirstRegion(t *testing.T) {
	regions := threeRegions()[:2]
	c, _ := newTestClassifier(t, ModeUni, regions, nil,
		[]string{"UUS parcel label"})

	d := c.Decide(context.Background(), whitePage())
	if d.Carrier != CarrierUni {
		t.Errorf("expected Uni, got %q", d.Carrier)
	}
	if d.Box != regions[0] {
		t.Errorf("expected first region, got %+v", d.Box)
	}
}

func TestProbe_NoMarkerUsesSecondRegion(t *testing.T) {
	regions := threeRegions()[:2]
	c, _ := newTestClassifier(t, ModeUni, regions, nil,
		[]string{"plain shipping text"})

	d := c.Decide(context.Background(), whitePage())
	if d.Carrier != "" {
		t.Errorf("expected no carrier, got %q", d.Carrier)
	}
	if d.Box != regions[1] {
		t.Errorf("expected second region, got %+v", d.Box)
	}
}

func TestProbe_LowercaseMarkerIgnored(t *testing.T) {
	regions := threeRegions()[:2]
	c, _ := newTestClassifier(t, ModeUni, regions, nil,
		[]string{"uus parcel label"})

	d := c.Decide(context.Background(), whitePage())
	if d.Carrier != "" {
		t.Errorf("lowercase marker must not classify, got %q", d.Carrier)
	}
	if d.Box != regions[1] {
		t.Errorf("expected second region, got %+v", d.Box)
	}
}

func TestProbe_SingleRegionFallsBack(t *testing.T) {
	regions := threeRegions()[:1]
	c, backend := newTestClassifier(t, ModeUni, regions, nil, nil)

	d := c.Decide(context.Background(), whitePage())
	if d.Box != regions[0] {
		t.Errorf("expected primary region, got %+v", d.Box)
	}
	if backend.calls != 0 {
		t.Errorf("expected no probe without a second region, got %d calls", backend.calls)
	}
}

func TestTemplate_MatchSuppliesCarrierPattern(t *testing.T) {
	// A black template on a page with a black block matches USPS first.
	tplImg := image.NewGray(image.Rect(0, 0, 180, 180))
	tpl := &match.Template{Label: CarrierUSPS, Image: tplImg, Mode: match.ModeDiff, Threshold: match.DefaultDiffThreshold}

	page := image.NewGray(image.Rect(0, 0, 900, 900))
	for i := range page.Pix {
		page.Pix[i] = 255
	}
	for y := 100; y < 400; y++ {
		for x := 100; x < 400; x++ {
			page.Pix[y*page.Stride+x] = 0
		}
	}

	regions := threeRegions()
	c, _ := newTestClassifier(t, ModeTemplate, regions, map[string]*match.Template{CarrierUSPS: tpl}, nil)

	d := c.Decide(context.Background(), page)
	if d.Carrier != CarrierUSPS {
		t.Errorf("expected USPS, got %q", d.Carrier)
	}
	if d.Pattern != `9\d{21}` {
		t.Errorf("expected USPS template pattern, got %q", d.Pattern)
	}
	if d.Box != regions[0] {
		t.Errorf("expected USPS region, got %+v", d.Box)
	}
}

func TestTemplate_NoMatchFallsBack(t *testing.T) {
	regions := threeRegions()
	c, _ := newTestClassifier(t, ModeTemplate, regions, nil, nil)

	d := c.Decide(context.Background(), whitePage())
	if d.Carrier != "" {
		t.Errorf("expected unclassified fallback, got %q", d.Carrier)
	}
	if d.Box != regions[0] {
		t.Errorf("expected primary region, got %+v", d.Box)
	}
	if d.Pattern != extract.DefaultPattern {
		t.Errorf("expected generic pattern, got %q", d.Pattern)
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":         ModeSingle,
		"single":   ModeSingle,
		"Template": ModeTemplate,
		"UNI":      ModeUni,
		" smart ":  ModeSmart,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		if err != nil {
			t.Errorf("ParseMode(%q) error = %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseMode(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseMode("bogus"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
