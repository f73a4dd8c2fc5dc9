package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/comalice/tickfsm"
	"github.com/comalice/tickfsm/internal/door"
	"github.com/comalice/tickfsm/internal/production"
)

func buildDotCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Render the door machine as Graphviz DOT or JSON",
		Long: `Render the door machine after a sample run.

Edges are learned from observed transitions, so the command drives a door
through open, close and toggle events plus one forced transition before
rendering it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, edges, err := sampleDoorGraph()
			if err != nil {
				return err
			}
			v := &production.DefaultVisualizer{}
			switch format {
			case "dot":
				_, err = fmt.Fprint(cmd.OutOrStdout(), v.ExportDOT(g, edges))
				return err
			case "json":
				data, err := v.ExportJSON(g, edges)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			default:
				return fmt.Errorf("unknown format %q (want dot or json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format (dot, json)")

	return cmd
}

func sampleDoorGraph() (production.Graph, []production.Edge, error) {
	edges := &production.EdgeRecorder{}
	m, err := door.New(&door.Door{},
		tickfsm.WithName("door"),
		tickfsm.WithLogger(slog.New(slog.DiscardHandler)),
		tickfsm.WithObserver(edges),
	)
	if err != nil {
		return production.Graph{}, nil, err
	}
	if err := m.Start(); err != nil {
		return production.Graph{}, nil, err
	}
	for _, ev := range []any{door.OpenEvent{}, door.CloseEvent{}, door.ToggleEvent{}, door.ToggleEvent{}} {
		if err := m.Dispatch(ev); err != nil {
			return production.Graph{}, nil, err
		}
	}
	if err := m.ForceTransition(door.Open{}); err != nil {
		return production.Graph{}, nil, err
	}
	return production.DescribeDefinition(door.Definition(), m), edges.Edges(), nil
}
