// Package app implements rapidaidctl, an operator CLI for the dispatch API.
package app

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

type rootOptions struct {
	Server  string
	Timeout time.Duration
	Output  string
}

// NewRootCommand creates the rapidaidctl command tree.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "rapidaidctl",
		Short:         "Inspect a RapidAid dispatch server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if o.Output != outputTable && o.Output != outputJSON {
				return fmt.Errorf("--output must be %q or %q, got %q", outputTable, outputJSON, o.Output)
			}
			return nil
		},
	}

	fs := cmd.PersistentFlags()
	fs.StringVarP(&o.Server, "server", "s", "http://localhost:5000", "Base URL of the dispatch server.")
	fs.DurationVar(&o.Timeout, "timeout", 10*time.Second, "Timeout of each API call.")
	fs.StringVarP(&o.Output, "output", "o", outputTable, "Output format: table or json.")

	cmd.AddCommand(
		newAmbulancesCommand(o),
		newHospitalsCommand(o),
		newRequestsCommand(o),
		newNearestCommand(o),
		newPendingCommand(o),
	)
	return cmd
}

func (o *rootOptions) client() *client {
	return newClient(o.Server, o.Timeout)
}

// render prints v as JSON, or calls table to fill a table.
func (o *rootOptions) render(w io.Writer, v any, table func(t *uitable.Table)) error {
	if o.Output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	t := uitable.New()
	t.MaxColWidth = 48
	table(t)
	_, err := fmt.Fprintln(w, t)
	return err
}

func orDash[T any](p *T) any {
	if p == nil {
		return "-"
	}
	return *p
}
