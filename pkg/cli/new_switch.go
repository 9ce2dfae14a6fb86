package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/switcher/pkg/plugins"
)

type newSwitchOptions struct {
	name     string
	settings map[string]string
	yes      bool
	turn     string
}

func newNewSwitchCommand(opts *options) *cobra.Command {
	nopts := &newSwitchOptions{}

	cmd := &cobra.Command{
		Use:   "new-switch <switch-type>",
		Short: "Create a switch of the given type and optionally turn it on or off",
		Long: `Create a switch through the switch type's edit flow. The switch type is
named by its directory name or ID. With --yes the flags are used as they are,
otherwise a form asks for the name and settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := loadCatalog(cmd, opts)
			if err != nil {
				return err
			}

			entry, err := findSwitchType(catalog, args[0])
			if err != nil {
				return err
			}

			var editor plugins.SwitchEditor = formEditor{}
			if nopts.yes {
				editor = flagEditor{name: nopts.name, settings: nopts.settings}
			}

			ctx := cmd.Context()
			sw, err := entry.NewSwitch(ctx, editor)
			if errors.Is(err, plugins.ErrSwitchCanceled) {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Canceled"))
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to create switch of type %s: %w", entry.Descriptor.Name, err)
			}

			out := cmd.OutOrStdout()
			switch nopts.turn {
			case "":
			case "on", "off":
				if err := sw.Turn(ctx, nopts.turn == "on"); err != nil {
					return err
				}
			default:
				return fmt.Errorf("invalid --turn value %q (must be on or off)", nopts.turn)
			}

			on, err := sw.IsOn(ctx)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", sw.Name(), err)
			}

			state := "off"
			if on {
				state = "on"
			}
			fmt.Fprintln(out, okStyle.Render(fmt.Sprintf("%s (%s) is %s", sw.Name(), entry.Descriptor.Name, state)))
			return nil
		},
	}

	cmd.Flags().StringVar(&nopts.name, "name", "", "Switch name (default is the switch type name)")
	cmd.Flags().StringToStringVar(&nopts.settings, "set", nil, "Switch setting as key=value, may be repeated")
	cmd.Flags().BoolVarP(&nopts.yes, "yes", "y", false, "Skip the form and use the flags")
	cmd.Flags().StringVar(&nopts.turn, "turn", "", "Turn the new switch on or off")

	return cmd
}

func findSwitchType(catalog *plugins.Catalog, ref string) (*plugins.SwitchTypeEntry, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if entry, ok := catalog.SwitchTypes().Lookup(id); ok {
			return entry, nil
		}
	}
	for _, entry := range catalog.SwitchTypes().All() {
		if strings.EqualFold(entry.Descriptor.Name, ref) {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("switch type %s is not installed", ref)
}

// flagEditor fills the draft from command line flags
type flagEditor struct {
	name     string
	settings map[string]string
}

func (e flagEditor) EditSwitch(_ context.Context, draft *plugins.SwitchDraft) (bool, error) {
	if e.name != "" {
		draft.Name = e.name
	}
	if draft.Settings == nil {
		draft.Settings = make(map[string]string)
	}
	for k, v := range e.settings {
		draft.Settings[strings.ToLower(k)] = v
	}
	return true, nil
}

// formEditor asks for the name and every setting in a terminal form
type formEditor struct{}

func (formEditor) EditSwitch(ctx context.Context, draft *plugins.SwitchDraft) (bool, error) {
	keys := make([]string, 0, len(draft.Settings))
	for k := range draft.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, len(keys))
	fields := []huh.Field{
		huh.NewInput().
			Title("Switch name").
			Value(&draft.Name),
	}
	for i, k := range keys {
		values[i] = draft.Settings[k]
		fields = append(fields, huh.NewInput().
			Title(k).
			Value(&values[i]))
	}

	err := huh.NewForm(huh.NewGroup(fields...)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	for i, k := range keys {
		draft.Settings[k] = values[i]
	}
	return true, nil
}
