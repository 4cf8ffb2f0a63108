// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/de"
	"github.com/vorlif/spreak"

	"github.com/wneessen/waybar-speed/internal/config"
	"github.com/wneessen/waybar-speed/internal/reading"
	"github.com/wneessen/waybar-speed/internal/speed"
)

const (
	ClassStopped = "stopped"
	ClassSlow    = "slow"
	ClassMoving  = "moving"
	ClassFast    = "fast"
)

type TemplateContext struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Accuracy  float64

	// Speed is in display units, SpeedMPS in meters per second.
	Speed     float64
	SpeedMPS  float64
	SpeedUnit string
	Estimated bool
	Class     string
	ClassIcon string

	HasHeading    bool
	Heading       float64
	Direction     string
	DirectionIcon string

	Source     string
	FixTime    time.Time
	UpdateTime time.Time
	Paused     bool
	Stale      bool
}

type Presenter struct {
	TextTemplate       *template.Template
	AltTextTemplate    *template.Template
	TooltipTemplate    *template.Template
	AltTooltipTemplate *template.Template

	units         string
	stopThreshold float64
	slowThreshold float64
	fastThreshold float64
	localizer     *spreak.Localizer
	humanizer     *humanize.Humanizer
}

// New parses the configured templates and verifies that they render with a sample context.
func New(conf *config.Config, loc *spreak.Localizer) (*Presenter, error) {
	collection, err := humanize.New(humanize.WithLocale(de.New()))
	if err != nil {
		return nil, fmt.Errorf("failed to create humanizer: %w", err)
	}
	pres := &Presenter{
		units:         conf.Units,
		stopThreshold: conf.Speed.StopThreshold,
		slowThreshold: conf.Speed.SlowThreshold,
		fastThreshold: conf.Speed.FastThreshold,
		localizer:     loc,
		humanizer:     collection.CreateHumanizer(loc.Language()),
	}

	tpls := conf.TemplateSet()
	if pres.TextTemplate, err = pres.parse("text", tpls.Text); err != nil {
		return nil, err
	}
	if pres.AltTextTemplate, err = pres.parse("alt_text", tpls.AltText); err != nil {
		return nil, err
	}
	if pres.TooltipTemplate, err = pres.parse("tooltip", tpls.Tooltip); err != nil {
		return nil, err
	}
	if pres.AltTooltipTemplate, err = pres.parse("alt_tooltip", tpls.AltTooltip); err != nil {
		return nil, err
	}

	sample := reading.Reading{Latitude: 51, Longitude: 7, SpeedMPS: 10, FixTime: time.Now(), ReceivedAt: time.Now()}
	sample.SetHeading(90)
	if _, err = pres.Render(pres.BuildContext(sample, false, false)); err != nil {
		return nil, err
	}

	return pres, nil
}

func (p *Presenter) parse(name, text string) (*template.Template, error) {
	tpl, err := template.New(name).Funcs(p.templateFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	return tpl, nil
}

// BuildContext converts a reading into the context the templates are rendered with.
func (p *Presenter) BuildContext(r reading.Reading, paused, stale bool) TemplateContext {
	display, unit := p.ConvertSpeed(r.SpeedMPS)
	class := p.Classify(display)
	ctx := TemplateContext{
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Altitude:   r.Altitude,
		Accuracy:   r.Accuracy,
		Speed:      display,
		SpeedMPS:   r.SpeedMPS,
		SpeedUnit:  unit,
		Estimated:  r.Estimated,
		Class:      class,
		ClassIcon:  classIcons[class],
		Source:     r.Source,
		FixTime:    r.FixTime,
		UpdateTime: r.ReceivedAt,
		Paused:     paused,
		Stale:      stale,
	}
	if r.Heading != nil {
		ctx.HasHeading = true
		ctx.Heading = *r.Heading
		ctx.Direction = p.degToString(*r.Heading)
		ctx.DirectionIcon = p.directionIcon(ctx.Direction)
	}
	return ctx
}

// Render executes all four templates and returns the results keyed by their waybar field name.
func (p *Presenter) Render(ctx TemplateContext) (map[string]string, error) {
	out := make(map[string]string, 4)
	for name, tpl := range map[string]*template.Template{
		"text":        p.TextTemplate,
		"alt_text":    p.AltTextTemplate,
		"tooltip":     p.TooltipTemplate,
		"alt_tooltip": p.AltTooltipTemplate,
	} {
		buf := bytes.NewBuffer(nil)
		if err := tpl.Execute(buf, ctx); err != nil {
			return nil, fmt.Errorf("failed to render %s template: %w", name, err)
		}
		out[name] = buf.String()
	}
	return out, nil
}

// ConvertSpeed converts m/s into the configured display unit.
func (p *Presenter) ConvertSpeed(mps float64) (float64, string) {
	switch p.units {
	case config.UnitsImperial:
		return speed.ToMPH(mps), "mph"
	case config.UnitsNautical:
		return speed.ToKnots(mps), "kn"
	default:
		return speed.ToKMH(mps), "km/h"
	}
}

// Classify maps a speed in display units to a CSS class.
func (p *Presenter) Classify(display float64) string {
	switch {
	case display < p.stopThreshold:
		return ClassStopped
	case display < p.slowThreshold:
		return ClassSlow
	case display < p.fastThreshold:
		return ClassMoving
	default:
		return ClassFast
	}
}

// Waiting returns the text shown before the first fix arrived.
func (p *Presenter) Waiting() string {
	return p.localizer.Get("Waiting for GPS fix")
}

// PausedText returns the text shown while location updates are paused.
func (p *Presenter) PausedText() string {
	return p.localizer.Get("Location updates paused")
}

// degToString converts a heading in degrees into one of the eight compass directions.
func (p *Presenter) degToString(deg float64) string {
	directions := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	idx := int((deg+22.5)/45.0) % 8
	if idx < 0 {
		idx += 8
	}
	return directions[idx]
}

func (p *Presenter) directionIcon(dir string) string {
	if icon, ok := directionIcons[strings.ToUpper(dir)]; ok {
		return icon
	}
	return ""
}
