package effects

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/core"
	dspfx "github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/reverb"
	"github.com/viterin/vek/vek32"

	"github.com/vsariola/patchwork"
)

type (
	Gain struct {
		params
		gain *patchwork.FloatControl
	}

	// Clip hard clips the signal to the range -level..level.
	Clip struct {
		params
		level *patchwork.FloatControl
	}

	Reverb struct {
		params
		wet, dry, rt60, damp *patchwork.FloatControl
		fdn                  *reverb.FDNReverb
		tmp                  []float64
	}

	Delay struct {
		params
		time, feedback, mix *patchwork.FloatControl
		delay               *dspfx.Delay
		tmp                 []float64
	}
)

func NewGain(int) (Effect, error) {
	g := &Gain{}
	g.gain = g.add("gain", 1, 0, 4)
	return g, nil
}

func (g *Gain) Name() string { return "gain" }
func (g *Gain) Reset()       {}

func (g *Gain) Process(buf []float32) {
	if v := float32(g.gain.Value()); v != 1 {
		vek32.MulNumber_Inplace(buf, v)
	}
}

func NewClip(int) (Effect, error) {
	c := &Clip{}
	c.level = c.add("level", 1, 0, 1)
	return c, nil
}

func (c *Clip) Name() string { return "clip" }
func (c *Clip) Reset()       {}

func (c *Clip) Process(buf []float32) {
	l := c.level.Value()
	for i, v := range buf {
		buf[i] = float32(core.Clamp(float64(v), -l, l))
	}
}

func NewReverb(sampleRate int) (Effect, error) {
	fdn, err := reverb.NewFDNReverb(float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("NewReverb failed: %w", err)
	}
	r := &Reverb{fdn: fdn}
	r.wet = r.add("wet", fdn.Wet(), 0, 1)
	r.dry = r.add("dry", fdn.Dry(), 0, 1)
	r.rt60 = r.add("rt60", fdn.RT60(), 0.1, 20)
	r.damp = r.add("damp", fdn.Damp(), 0, 1)
	if err := r.configure(); err != nil {
		return nil, fmt.Errorf("NewReverb failed: %w", err)
	}
	return r, nil
}

// configure passes the controls to the reverb. The ranges of the controls
// are within what the reverb accepts.
func (r *Reverb) configure() error {
	return errors.Join(
		r.fdn.SetWet(r.wet.Value()),
		r.fdn.SetDry(r.dry.Value()),
		r.fdn.SetRT60(r.rt60.Value()),
		r.fdn.SetDamp(r.damp.Value()),
	)
}

func (r *Reverb) Name() string { return "reverb" }
func (r *Reverb) Reset()       { r.fdn.Reset() }

func (r *Reverb) Process(buf []float32) {
	r.apply(r.configure)
	r.tmp = toFloat64(r.tmp, buf)
	r.fdn.ProcessInPlace(r.tmp)
	fromFloat64(buf, r.tmp)
}

func NewDelay(sampleRate int) (Effect, error) {
	delay, err := dspfx.NewDelay(float64(sampleRate))
	if err != nil {
		return nil, fmt.Errorf("NewDelay failed: %w", err)
	}
	d := &Delay{delay: delay}
	d.time = d.add("time", delay.Time(), 0.001, 2)
	d.feedback = d.add("feedback", 0.35, 0, 0.99)
	d.mix = d.add("mix", 0.25, 0, 1)
	if err := d.configure(); err != nil {
		return nil, fmt.Errorf("NewDelay failed: %w", err)
	}
	return d, nil
}

func (d *Delay) configure() error {
	return errors.Join(
		d.delay.SetTime(d.time.Value()),
		d.delay.SetFeedback(d.feedback.Value()),
		d.delay.SetMix(d.mix.Value()),
	)
}

func (d *Delay) Name() string { return "delay" }
func (d *Delay) Reset()       { d.delay.Reset() }

func (d *Delay) Process(buf []float32) {
	d.apply(d.configure)
	d.tmp = toFloat64(d.tmp, buf)
	d.delay.ProcessInPlace(d.tmp)
	fromFloat64(buf, d.tmp)
}
