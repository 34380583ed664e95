package modules

import (
	"context"
	"log/slog"

	"github.com/odakahirokazu/ANLNext/internal/module"
	"github.com/odakahirokazu/ANLNext/internal/param"
	"github.com/odakahirokazu/ANLNext/internal/status"
)

// Histogram is a fixed-width 1D histogram over [Min, Max).
type Histogram struct {
	Name      string  `json:"name"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Bins      []int64 `json:"bins"`
	Underflow int64   `json:"underflow"`
	Overflow  int64   `json:"overflow"`
}

// NewHistogram returns an empty histogram with nbin bins.
func NewHistogram(name string, nbin int, lo, hi float64) *Histogram {
	return &Histogram{Name: name, Min: lo, Max: hi, Bins: make([]int64, max(nbin, 1))}
}

// Fill adds one entry at x.
func (h *Histogram) Fill(x float64) {
	switch {
	case x < h.Min:
		h.Underflow++
	case x >= h.Max:
		h.Overflow++
	default:
		i := int((x - h.Min) / (h.Max - h.Min) * float64(len(h.Bins)))
		h.Bins[min(i, len(h.Bins)-1)]++
	}
}

// Entries returns the number of fills, including under- and overflow.
func (h *Histogram) Entries() int64 {
	n := h.Underflow + h.Overflow
	for _, b := range h.Bins {
		n += b
	}
	return n
}

// Add merges o into h. Both must have the same binning.
func (h *Histogram) Add(o *Histogram) {
	for i := range min(len(h.Bins), len(o.Bins)) {
		h.Bins[i] += o.Bins[i]
	}
	h.Underflow += o.Underflow
	h.Overflow += o.Overflow
}

// FillHistogram fills the spectra of the GenerateEvents detectors: one
// histogram per detector and their sum.
type FillHistogram struct {
	module.Base

	source EnergySource
	spec1  *Histogram
	spec2  *Histogram
	sum    *Histogram
}

func NewFillHistogram() module.Module {
	m := &FillHistogram{Base: module.NewBase("FillHistogram", "1.0")}
	r := m.Parameters()
	r.MustDeclare("source", param.String("GenerateEvents"),
		param.WithDescription("Module id of the energy source"))
	r.MustDeclare("nbin", param.Int(128), param.WithDescription("Number of bins"))
	r.MustDeclare("energy_min", param.Real(0.0), param.WithUnit("keV", keV),
		param.WithDescription("Lower bound of the histograms"))
	r.MustDeclare("energy_max", param.Real(100.0), param.WithUnit("keV", keV),
		param.WithDescription("Upper bound of the histograms"))
	return m
}

func (m *FillHistogram) Clone() module.Module {
	return &FillHistogram{Base: m.CloneBase()}
}

func (m *FillHistogram) Initialize(ctx context.Context) status.Status {
	r := m.Parameters()
	name := stringParam(r, "source")
	src, ok := module.Lookup(ctx, name)
	if !ok {
		slog.Error("energy source not in chain", "module", m.ModuleID(), "source", name)
		return status.Quit
	}
	m.source, ok = src.(EnergySource)
	if !ok {
		slog.Error("module does not provide energies", "module", m.ModuleID(), "source", name)
		return status.Quit
	}

	nbin := int(intParam(r, "nbin"))
	lo, hi := realParam(r, "energy_min"), realParam(r, "energy_max")
	if hi <= lo {
		slog.Error("empty histogram range", "module", m.ModuleID(), "energy_min", lo, "energy_max", hi)
		return status.Quit
	}
	m.spec1 = NewHistogram("spectrum1", nbin, lo, hi)
	m.spec2 = NewHistogram("spectrum2", nbin, lo, hi)
	m.sum = NewHistogram("spectrum_sum", nbin, lo, hi)
	return status.OK
}

func (m *FillHistogram) Analyze(ctx context.Context) status.Status {
	flags := module.FlagsFrom(ctx)
	e := m.source.Energy()
	if flags.Get(FlagDetector1) {
		m.spec1.Fill(e)
		m.sum.Fill(e)
	}
	if flags.Get(FlagDetector2) {
		m.spec2.Fill(e)
		m.sum.Fill(e)
	}
	return status.OK
}

// Reduce adds the spectra of the parallel replicas to this module's.
func (m *FillHistogram) Reduce(parallel []module.Module) status.Status {
	if m.sum == nil {
		return status.OK
	}
	for _, p := range parallel {
		o, ok := p.(*FillHistogram)
		if !ok || o.sum == nil {
			slog.Error("cannot merge replica", "module", m.ModuleID())
			return status.QuitError
		}
		m.spec1.Add(o.spec1)
		m.spec2.Add(o.spec2)
		m.sum.Add(o.sum)
	}
	return status.OK
}

// Histograms returns the spectra filled so far, in the order detector 1,
// detector 2, sum. It is nil before Initialize.
func (m *FillHistogram) Histograms() []*Histogram {
	if m.sum == nil {
		return nil
	}
	return []*Histogram{m.spec1, m.spec2, m.sum}
}
