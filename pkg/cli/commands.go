package cli

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/switcher/pkg/plugins"
)

func newCheckCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load every plugin and report whether startup would succeed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}
}

func runCheck(cmd *cobra.Command, opts *options) error {
	catalog, err := loadCatalog(cmd, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render(fmt.Sprintf("Loaded %d engine(s) and %d switch type(s)",
		catalog.Engines().Len(), catalog.SwitchTypes().Len())))
	return nil
}

func newEnginesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the installed engines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd, opts)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, catalog.Engines().Len())
			for _, e := range catalog.Engines().All() {
				rows = append(rows, []string{
					e.Descriptor.Name,
					e.Descriptor.ID.String(),
					manifestColumn(e.Descriptor),
					strconv.Itoa(len(catalog.SwitchTypes().ByEngine(e.Descriptor.ID))),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Engines"))
			fmt.Fprintln(out, renderTable([]string{"Name", "ID", "Manifest", "Switch types"}, rows))
			return nil
		},
	}
}

func manifestColumn(d *plugins.EngineDescriptor) string {
	if d.Manifest == "" {
		return "-"
	}
	name := filepath.Base(d.Manifest)
	if !d.Resource.IsZero() {
		name += " (" + d.Resource.String() + ")"
	}
	return name
}

func newSwitchTypesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "switch-types",
		Aliases: []string{"switches"},
		Short:   "List the installed switch types and their engines",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd, opts)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, catalog.SwitchTypes().Len())
			for _, st := range catalog.SwitchTypes().All() {
				rows = append(rows, []string{
					st.Descriptor.Name,
					st.Descriptor.ID.String(),
					st.Engine.Descriptor.Name,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Switch types"))
			fmt.Fprintln(out, renderTable([]string{"Name", "ID", "Engine"}, rows))
			return nil
		},
	}
}
