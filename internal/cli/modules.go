package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/odakahirokazu/ANLNext/internal/modules"
)

// ModuleInfo describes one catalog entry.
type ModuleInfo struct {
	Type       string          `json:"type"`
	Version    string          `json:"version"`
	Parameters []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes one declared parameter of a module type.
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Unit        string `json:"unit,omitempty"`
	Description string `json:"description,omitempty"`
}

// ModulesResult lists every module type that chain files can name.
type ModulesResult struct {
	Modules []ModuleInfo `json:"modules"`

	long bool
}

// RenderText prints one row per module type, and with --long one row per
// parameter below it.
func (r *ModulesResult) RenderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tVERSION\tPARAMETERS")
	for _, m := range r.Modules {
		names := make([]string, len(m.Parameters))
		for i, p := range m.Parameters {
			names[i] = p.Name
		}
		if r.long {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", m.Type, m.Version, len(m.Parameters))
			for _, p := range m.Parameters {
				fmt.Fprintf(tw, "  %s\t%s\t%s\n", p.Name, p.Type, p.Description)
			}
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Type, m.Version, strings.Join(names, ", "))
	}
	return tw.Flush()
}

// NewModulesCommand creates the modules command.
func NewModulesCommand(rootOpts *RootOptions) *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "modules",
		Short: "List the module types available to chain files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			result := listModules()
			result.long = long
			return formatter.Success(result)
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "list every parameter with its type")
	return cmd
}

// listModules describes the stock catalog in type-name order. Hidden
// parameters are left out.
func listModules() *ModulesResult {
	cat := modules.Catalog()
	result := &ModulesResult{Modules: []ModuleInfo{}}
	for _, name := range cat.TypeNames() {
		f, _ := cat.Lookup(name)
		m := f()
		info := ModuleInfo{Type: m.TypeName(), Version: m.Version(), Parameters: []ParameterInfo{}}
		for _, p := range m.Parameters().Parameters() {
			if p.IsHidden() {
				continue
			}
			info.Parameters = append(info.Parameters, ParameterInfo{
				Name:        p.Name(),
				Type:        p.TypeName(),
				Unit:        p.Unit(),
				Description: p.Description(),
			})
		}
		result.Modules = append(result.Modules, info)
	}
	return result
}
