package engine

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/odakahirokazu/ANLNext/internal/param"
)

// Summary writes the event accounting of the run: PUT and GET totals, one
// row of counters per module and the count of every event flag.
func (e *Engine) Summary(w io.Writer) error {
	c := e.Counters()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "run\t%s\n", e.runID)
	fmt.Fprintf(tw, "replicas\t%d\n", len(e.replicas))
	fmt.Fprintf(tw, "PUT\t%d\n", c.Put)
	fmt.Fprintf(tw, "GET\t%d\n", c.Get)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "MODULE\tON\tENTRY\tOK\tERROR\tSKIP\tQUIT")
	mods := e.Modules()
	for i, mc := range c.Modules {
		on := "on"
		if i < len(mods) && !mods[i].IsOn() {
			on = "off"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n", mc.ModuleID, on, mc.Entry, mc.OK, mc.Error, mc.Skip, mc.Quit)
	}

	if keys := e.FlagKeys(); len(keys) > 0 {
		counts := e.FlagCounts()
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "FLAG\tEVENTS")
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%d\n", k, counts[k])
		}
	}
	return tw.Flush()
}

// ChainTable writes the module chain in order with type, version and
// on/off state.
func (e *Engine) ChainTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMODULE\tTYPE\tVERSION\tON\tALIASES")
	for i, m := range e.Modules() {
		on := "on"
		if !m.IsOn() {
			on = "off"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i, m.ModuleID(), m.TypeName(), m.Version(), on, strings.Join(m.Aliases(), ","))
	}
	return tw.Flush()
}

// PrintParameters writes every visible parameter of every module as
// canonical JSON, followed by its unit when one is declared.
func (e *Engine) PrintParameters(w io.Writer) error {
	for _, m := range e.Modules() {
		if _, err := fmt.Fprintf(w, "--- %s (%s) ---\n", m.ModuleID(), m.TypeName()); err != nil {
			return err
		}
		for _, p := range m.Parameters().Parameters() {
			if p.IsHidden() {
				continue
			}
			v, err := param.GetValue(p)
			if err != nil {
				return fmt.Errorf("module %s: %w", m.ModuleID(), err)
			}
			b, err := param.MarshalCanonical(v)
			if err != nil {
				return fmt.Errorf("module %s: parameter %s: %w", m.ModuleID(), p.Name(), err)
			}
			line := fmt.Sprintf("%s: %s", p.Name(), b)
			if u := p.Unit(); u != "" {
				line += " [" + u + "]"
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
