package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/arkit/internal/config"
	"github.com/systmms/arkit/pkg/strategy"
)

func NewStrategiesCommand(cfg *config.Config) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "strategies",
		Short: "List wallet strategies",
		Long: `Display the wallet strategies arkit can connect with.

Strategies are listed in the order the connect picker shows them, together
with whether each one is usable right now.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cfg)
			if err != nil {
				return err
			}
			defer rt.close()

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintf(w, "ID\tNAME\tSTATUS\n")
			_, _ = fmt.Fprintf(w, "--\t----\t------\n")

			for _, s := range rt.registry.List() {
				md := s.Metadata()
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", md.ID, md.Name, availability(cmd.Context(), s))
			}
			_ = w.Flush()

			if verbose {
				_, _ = fmt.Fprintln(out, "\nStrategy Details:")
				_, _ = fmt.Fprintln(out, "================")
				for _, s := range rt.registry.List() {
					md := s.Metadata()
					_, _ = fmt.Fprintf(out, "\n%s:\n", md.ID)
					_, _ = fmt.Fprintf(out, "  • %s\n", md.Description)
					if md.URL != "" {
						_, _ = fmt.Fprintf(out, "  • More: %s\n", md.URL)
					}
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show strategy descriptions")

	return cmd
}

// availability probes s the way the machine does, treating errors and
// panics as unavailable
func availability(ctx context.Context, s strategy.Strategy) (status string) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			status = "error"
		}
	}()

	ok, err := s.IsAvailable(ctx)
	switch {
	case err != nil:
		return "error: " + err.Error()
	case ok:
		return "available"
	default:
		return "not available"
	}
}
