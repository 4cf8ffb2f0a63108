// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"fmt"
	"math"
	"strings"
	"testing"
	"text/template"
	"time"

	"github.com/vorlif/spreak"

	"github.com/wneessen/waybar-speed/internal/config"
	"github.com/wneessen/waybar-speed/internal/i18n"
	"github.com/wneessen/waybar-speed/internal/reading"
)

var (
	now     = time.Now()
	testFix = reading.Reading{
		Latitude:   37.12346,
		Longitude:  -122.56789,
		Altitude:   12.5,
		Accuracy:   4.2,
		SpeedMPS:   5.516,
		Estimated:  true,
		Source:     "gpsd",
		FixTime:    now,
		ReceivedAt: now,
	}
)

func TestNew(t *testing.T) {
	t.Run("creating a new presenter succeeds", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		if pres == nil {
			t.Fatal("expected presenter to be non-nil")
		}
	})
	t.Run("all presets render", func(t *testing.T) {
		for name := range config.Presets {
			t.Run(name, func(t *testing.T) {
				t.Setenv("WAYBARSPEED_TEMPLATES_PRESET", name)
				conf, lang := testConfLang(t)
				if _, err := New(conf, lang); err != nil {
					t.Errorf("failed to create presenter with preset %s: %s", name, err)
				}
			})
		}
	})
	t.Run("creating presenter with invalid templates fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
		}{
			{"text", func(conf *config.Config) { conf.Templates.Text = "{{invalid" }},
			{"alt_text", func(conf *config.Config) { conf.Templates.AltText = "{{invalid" }},
			{"tooltip", func(conf *config.Config) { conf.Templates.Tooltip = "{{invalid" }},
			{"alt_tooltip", func(conf *config.Config) { conf.Templates.AltTooltip = "{{invalid" }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t)
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				wantErr := "failed to parse"
				if !strings.Contains(err.Error(), wantErr) {
					t.Errorf("expected error to contain %q, got %q", wantErr, err)
				}
			})
		}
	})
	t.Run("creating presenter with template execution errors fails", func(t *testing.T) {
		tests := []struct {
			name       string
			templateFn func(conf *config.Config)
		}{
			{"text", func(conf *config.Config) { conf.Templates.Text = "{{.Data}}" }},
			{"alt_text", func(conf *config.Config) { conf.Templates.AltText = "{{.Data}}" }},
			{"tooltip", func(conf *config.Config) { conf.Templates.Tooltip = "{{.Data}}" }},
			{"alt_tooltip", func(conf *config.Config) { conf.Templates.AltTooltip = "{{.Data}}" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t)
				tt.templateFn(conf)
				_, err := New(conf, lang)
				if err == nil {
					t.Fatal("expected presenter to fail, but didn't")
				}
				wantErr := "failed to render"
				if !strings.Contains(err.Error(), wantErr) {
					t.Errorf("expected error to contain %q, got %q", wantErr, err)
				}
			})
		}
	})
}

func TestPresenter_BuildContext(t *testing.T) {
	t.Run("building context converts the speed", func(t *testing.T) {
		tests := []struct {
			units string
			want  float64
			unit  string
		}{
			{config.UnitsMetric, 5.516 * 3.6, "km/h"},
			{config.UnitsImperial, 5.516 * 2.23694, "mph"},
			{config.UnitsNautical, 5.516 * 1.943844, "kn"},
		}
		for _, tt := range tests {
			t.Run(tt.units, func(t *testing.T) {
				conf, lang := testConfLang(t)
				conf.Units = tt.units
				pres, err := New(conf, lang)
				if err != nil {
					t.Fatalf("failed to create presenter: %s", err)
				}
				ctx := pres.BuildContext(testFix, false, false)
				if math.Abs(ctx.Speed-tt.want) > 1e-9 {
					t.Errorf("expected speed to be %f, got %f", tt.want, ctx.Speed)
				}
				if ctx.SpeedUnit != tt.unit {
					t.Errorf("expected speed unit to be %s, got %s", tt.unit, ctx.SpeedUnit)
				}
				if ctx.SpeedMPS != testFix.SpeedMPS {
					t.Errorf("expected speed in m/s to be %f, got %f", testFix.SpeedMPS, ctx.SpeedMPS)
				}
			})
		}
	})
	t.Run("building context sets class and heading", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		r := testFix
		r.SetHeading(100)
		ctx := pres.BuildContext(r, true, true)
		if ctx.Class != ClassSlow {
			t.Errorf("expected class to be %s, got %s", ClassSlow, ctx.Class)
		}
		if ctx.ClassIcon != classIcons[ClassSlow] {
			t.Errorf("expected class icon to be %s, got %s", classIcons[ClassSlow], ctx.ClassIcon)
		}
		if !ctx.HasHeading || ctx.Direction != "E" || ctx.DirectionIcon != "→" {
			t.Errorf("expected heading east, got %t %s %s", ctx.HasHeading, ctx.Direction, ctx.DirectionIcon)
		}
		if !ctx.Paused || !ctx.Stale {
			t.Error("expected context to be paused and stale")
		}
	})
	t.Run("building context without heading", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		ctx := pres.BuildContext(testFix, false, false)
		if ctx.HasHeading || ctx.Direction != "" {
			t.Errorf("expected no heading, got %s", ctx.Direction)
		}
	})
}

func TestPresenter_Render(t *testing.T) {
	t.Run("rendering the speed preset succeeds", func(t *testing.T) {
		t.Setenv("WAYBARSPEED_UNITS", "imperial")
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		outMap, err := pres.Render(pres.BuildContext(testFix, false, false))
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if len(outMap) != 4 {
			t.Errorf("expected output map to have length 4, got %d", len(outMap))
		}
		wantText := "12.34 mph"
		wantAltText := "37.1235, -122.5679"
		wantTooltip := "Lat: 37.1235\nLng: -122.5679\nSpeed: 12.34 mph"
		if outMap["text"] != wantText {
			t.Errorf("expected text output to be %q, got %q", wantText, outMap["text"])
		}
		if outMap["alt_text"] != wantAltText {
			t.Errorf("expected alt_text output to be %q, got %q", wantAltText, outMap["alt_text"])
		}
		if outMap["tooltip"] != wantTooltip {
			t.Errorf("expected tooltip output to be %q, got %q", wantTooltip, outMap["tooltip"])
		}
		if !strings.Contains(outMap["alt_tooltip"], "Source: gpsd") {
			t.Errorf("expected alt_tooltip output to contain the source, got %q", outMap["alt_tooltip"])
		}
	})
	t.Run("rendering the coordinates preset succeeds", func(t *testing.T) {
		t.Setenv("WAYBARSPEED_TEMPLATES_PRESET", "coordinates")
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		outMap, err := pres.Render(pres.BuildContext(testFix, false, false))
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		wantTooltip := "Latitude: 37.12346\nLongitude: -122.56789"
		if outMap["tooltip"] != wantTooltip {
			t.Errorf("expected tooltip output to be %q, got %q", wantTooltip, outMap["tooltip"])
		}
	})
	t.Run("rendering the degrees preset succeeds", func(t *testing.T) {
		t.Setenv("WAYBARSPEED_TEMPLATES_PRESET", "degrees")
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		outMap, err := pres.Render(pres.BuildContext(testFix, false, false))
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		wantTooltip := "Lat: 37.1235°\nLng: -122.5679°"
		if outMap["tooltip"] != wantTooltip {
			t.Errorf("expected tooltip output to be %q, got %q", wantTooltip, outMap["tooltip"])
		}
	})
	t.Run("rendering in german succeeds", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		lang, err := i18n.New("de-DE")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		outMap, err := pres.Render(pres.BuildContext(testFix, false, false))
		if err != nil {
			t.Fatalf("failed to render: %s", err)
		}
		if !strings.Contains(outMap["tooltip"], "Geschwindigkeit: ") {
			t.Errorf("expected tooltip output to be localized, got %q", outMap["tooltip"])
		}
	})
	t.Run("rendering with invalid templates fails", func(t *testing.T) {
		tests := []struct {
			name  string
			setFn func(*Presenter, *template.Template)
		}{
			{"text", func(p *Presenter, tpl *template.Template) { p.TextTemplate = tpl }},
			{"alt_text", func(p *Presenter, tpl *template.Template) { p.AltTextTemplate = tpl }},
			{"tooltip", func(p *Presenter, tpl *template.Template) { p.TooltipTemplate = tpl }},
			{"alt_tooltip", func(p *Presenter, tpl *template.Template) { p.AltTooltipTemplate = tpl }},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				conf, lang := testConfLang(t)
				pres, err := New(conf, lang)
				if err != nil {
					t.Fatalf("failed to create presenter: %s", err)
				}
				tpl, err := template.New(tt.name).Parse("{{.Data}}")
				if err != nil {
					t.Fatalf("failed to parse template: %s", err)
				}
				tt.setFn(pres, tpl)
				_, err = pres.Render(pres.BuildContext(testFix, false, false))
				if err == nil {
					t.Error("expected rendering to fail, but didn't")
				}
			})
		}
	})
}

func TestPresenter_Classify(t *testing.T) {
	conf, lang := testConfLang(t)
	pres, err := New(conf, lang)
	if err != nil {
		t.Fatalf("failed to create presenter: %s", err)
	}
	tests := []struct {
		speed float64
		want  string
	}{
		{0, ClassStopped},
		{0.99, ClassStopped},
		{1, ClassSlow},
		{19.9, ClassSlow},
		{20, ClassMoving},
		{59.9, ClassMoving},
		{60, ClassFast},
		{250, ClassFast},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.speed), func(t *testing.T) {
			if got := pres.Classify(tt.speed); got != tt.want {
				t.Errorf("expected class to be %s, got %s", tt.want, got)
			}
		})
	}
}

func TestPresenter_degToString(t *testing.T) {
	tests := []struct {
		name string
		deg  float64
		want string
	}{
		{"0 -> North", 0, "N"},
		{"22.4 -> North", 22.4, "N"},
		{"22.5 -> North-East", 22.5, "NE"},
		{"67.5 -> East", 67.5, "E"},
		{"112.5 -> South-East", 112.5, "SE"},
		{"157.5 -> South", 157.5, "S"},
		{"202.5 -> South-West", 202.5, "SW"},
		{"247.5 -> West", 247.5, "W"},
		{"292.5 -> North-West", 292.5, "NW"},
		{"337.5 -> North", 337.5, "N"},
		{"359.9 -> North", 359.9, "N"},
		{"360.0 -> North", 360.0, "N"},
	}

	pres := new(Presenter)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pres.degToString(tt.deg); got != tt.want {
				t.Errorf("failed to get direction: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPresenter_directionIcon(t *testing.T) {
	tests := []struct {
		val  string
		want string
	}{
		{"N", "↑"},
		{"ne", "↗"},
		{"SW", "↙"},
		{"Unknown", ""},
	}
	pres := new(Presenter)
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			if got := pres.directionIcon(tt.val); got != tt.want {
				t.Errorf("failed to get direction icon: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPresenter_loc(t *testing.T) {
	t.Run("localized value is found", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		want := "Latitude"
		if got := pres.loc("latitude"); got != want {
			t.Errorf("failed to get localized value: got %s, want %s", got, want)
		}
	})
	t.Run("localized german value is found", func(t *testing.T) {
		conf, err := config.New()
		if err != nil {
			t.Fatalf("failed to create config: %s", err)
		}
		lang, err := i18n.New("de-DE")
		if err != nil {
			t.Fatalf("failed to create i18n provider: %s", err)
		}
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		want := "Höhe"
		if got := pres.loc("Altitude"); got != want {
			t.Errorf("failed to get localized value: got %s, want %s", got, want)
		}
	})
	t.Run("localized value is not found", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		want := "foobar"
		if got := pres.loc("foobar"); got != want {
			t.Errorf("failed to get localized value: got %s, want %s", got, want)
		}
	})
}

func TestPresenter_timeFormat(t *testing.T) {
	t.Run("RFC3339 format is used", func(t *testing.T) {
		pres := new(Presenter)
		if got := pres.timeFormat(now, time.RFC3339); got != now.Format(time.RFC3339) {
			t.Errorf("failed to get time format: got %s, want %s", got, now.Format(time.RFC3339))
		}
	})
}

func TestPresenter_naturalTime(t *testing.T) {
	t.Run("zero time renders a dash", func(t *testing.T) {
		pres := new(Presenter)
		if got := pres.naturalTime(time.Time{}); got != "-" {
			t.Errorf("expected zero time to render as dash, got %s", got)
		}
	})
	t.Run("past time renders relative", func(t *testing.T) {
		conf, lang := testConfLang(t)
		pres, err := New(conf, lang)
		if err != nil {
			t.Fatalf("failed to create presenter: %s", err)
		}
		if got := pres.naturalTime(time.Now().Add(-time.Minute * 5)); !strings.Contains(got, "ago") {
			t.Errorf("expected relative time, got %s", got)
		}
	})
}

func TestPresenter_floatFormat(t *testing.T) {
	tests := []struct {
		name string
		val  float64
		prec int
		want string
	}{
		{"0.0", 0.0, 0, "0"},
		{"0.4", 0.4, 1, "0.4"},
		{"0.1234", 0.1234, 4, "0.1234"},
		{"0.123", 0.1234, 3, "0.123"},
		{"0.12", 0.1234, 2, "0.12"},
		{"rounds down", 12.34, 1, "12.3"},
		{"rounds up", 12.339, 2, "12.34"},
		{"negative", -122.56789, 4, "-122.5679"},
		{"decimal half below binary half", 37.12345, 4, "37.1234"},
	}

	pres := new(Presenter)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pres.floatFormat(tt.val, tt.prec); got != tt.want {
				t.Errorf("failed to get float format: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPresenter_degrees(t *testing.T) {
	pres := new(Presenter)
	if got := pres.degrees(37.12346, 4); got != "37.1235°" {
		t.Errorf("failed to format degrees: got %s", got)
	}
}

func TestPresenter_iconSpace(t *testing.T) {
	tests := []struct {
		name string
		icon string
		want string
	}{
		{"empty", "", ""},
		{"narrow arrow", "→", "→ "},
		{"wide emoji", "🚗", "🚗 "},
	}
	pres := new(Presenter)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pres.iconSpace(tt.icon); got != tt.want {
				t.Errorf("failed to pad icon: got %q, want %q", got, tt.want)
			}
		})
	}
}

func testConfLang(t *testing.T) (*config.Config, *spreak.Localizer) {
	t.Helper()
	conf, err := config.New()
	if err != nil {
		t.Fatalf("failed to create config: %s", err)
	}
	lang, err := i18n.New("en")
	if err != nil {
		t.Fatalf("failed to create i18n provider: %s", err)
	}
	return conf, lang
}
