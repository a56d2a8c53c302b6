package connect

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type listCmd struct {
	cloud string
}

// run prints the catalog grouped by cloud, marking which sources are
// currently enabled.
func (c *listCmd) run() error {
	a, err := newApp()
	if err != nil {
		return err
	}

	clouds := a.catalog.Clouds()
	if c.cloud != "" {
		clouds = []string{c.cloud}
	}

	for _, cloud := range clouds {
		sources := a.catalog.ByCloud(cloud)
		if len(sources) == 0 {
			return fmt.Errorf("no sources for cloud %q: known clouds: %s",
				cloud, strings.Join(a.catalog.Clouds(), ", "))
		}
		fmt.Printf("%s:\n", strings.ToUpper(cloud))
		for _, src := range sources {
			marker := " "
			detail := ""
			if src.RequiresTunnel() {
				if rec, ok, _ := a.store.LoadTunnelRecord(src.ID); ok {
					marker = "*"
					detail = fmt.Sprintf(" (localhost:%d)", rec.LocalPort)
				}
			} else if a.store.ProfileExists(src.ID) {
				marker = "*"
				detail = " (direct)"
			}
			fmt.Printf("  %s %-16s %-22s %s%s\n", marker, src.ID, src.Kind, src.Name, detail)
			if len(src.SampleDatasets) > 0 {
				fmt.Printf("      datasets: %s\n", strings.Join(src.SampleDatasets, ", "))
			}
		}
	}
	fmt.Println("\n* = enabled")
	return nil
}

func newListCmd() *cobra.Command {
	c := &listCmd{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list available data sources and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run()
		},
	}
	cmd.Flags().StringVarP(&c.cloud, "cloud", "c", "", "only show sources for this cloud")
	return cmd
}
