package connect

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platformeng/dataconnect/pkg/errdefs"
)

type infoCmd struct{}

// run prints what a user needs to connect: status, local endpoint, target and
// tunnel route. Status is read from persisted state so it works from any
// terminal, not just the one serving the tunnels.
func (c *infoCmd) run(sourceID string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	src, ok := a.catalog.Lookup(sourceID)
	if !ok {
		return &errdefs.UnknownSourceError{SourceID: sourceID, Available: a.catalog.IDs()}
	}

	fmt.Printf("%s (%s)\n", src.Name, src.ID)
	fmt.Printf("  cloud:    %s\n", src.Cloud)
	fmt.Printf("  type:     %s\n", src.Kind)
	if src.Description != "" {
		fmt.Printf("  about:    %s\n", src.Description)
	}

	if !src.RequiresTunnel() {
		if a.store.ProfileExists(src.ID) {
			fmt.Println("  status:   connected (direct)")
			fmt.Printf("  profile:  %s\n", a.store.ProfilePath(src.ID))
		} else {
			fmt.Println("  status:   disconnected")
			fmt.Printf("  hint:     dataconnect enable %s\n", src.ID)
		}
		return nil
	}

	rec, enabled, err := a.store.LoadTunnelRecord(src.ID)
	if err != nil {
		return err
	}
	if !enabled {
		fmt.Println("  status:   disconnected")
		fmt.Printf("  hint:     dataconnect enable %s\n", src.ID)
		return nil
	}

	fmt.Println("  status:   connected")
	fmt.Printf("  endpoint: localhost:%d\n", rec.LocalPort)
	fmt.Printf("  target:   %s:%d via %s\n", rec.TargetHost, rec.TargetPort, rec.BastionHost)
	fmt.Printf("  since:    %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  profile:  %s\n", a.store.ProfilePath(src.ID))
	if len(src.SampleDatasets) > 0 {
		fmt.Printf("  datasets: %s\n", strings.Join(src.SampleDatasets, ", "))
	}
	if a.history != nil {
		if sessions, err := a.history.SourceSessions(src.ID); err == nil && len(sessions) > 0 {
			fmt.Printf("  sessions: %d recorded, latest %s\n",
				len(sessions), sessions[0].EstablishedAt.Local().Format("2006-01-02 15:04:05"))
		}
	}
	return nil
}

func newInfoCmd() *cobra.Command {
	c := &infoCmd{}
	return &cobra.Command{
		Use:   "info <source-id>",
		Short: "show connection details for a data source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(args[0])
		},
	}
}
