package connect

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const enableDesc = `
Enable a shared data source. For bastion-fronted sources this opens an SSH
tunnel through the cloud's bastion host, persists the tunnel descriptor and
writes a connection profile for the query engine. For credential-only cloud
services only the profile is written.

By default the command verifies the tunnel, persists state and returns; run
'dataconnect daemon' to serve the tunnels. With --wait the tunnel is held open
in the foreground until interrupted.
`

type enableCmd struct {
	wait bool
}

func (c *enableCmd) validate(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one source identifier, got %d", len(args))
	}
	return nil
}

func (c *enableCmd) run(sourceID string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	ctx := context.Background()

	rec, err := a.super.Enable(ctx, sourceID)
	if err != nil {
		return err
	}

	if rec == nil {
		fmt.Printf("%s enabled: connection profile written to %s\n",
			sourceID, a.store.ProfilePath(sourceID))
		return nil
	}

	fmt.Printf("%s enabled: localhost:%d -> %s:%d via %s\n",
		sourceID, rec.LocalPort, rec.TargetHost, rec.TargetPort, rec.BastionHost)
	fmt.Printf("connection profile written to %s\n", a.store.ProfilePath(sourceID))

	if !c.wait {
		// Keep the descriptor so daemon mode re-establishes the tunnel.
		a.super.Close()
		fmt.Println("run 'dataconnect daemon' to serve the tunnel")
		return nil
	}

	a.super.StartMonitor(ctx)
	fmt.Println("holding tunnel open, press Ctrl-C to stop")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Str("source", sourceID).Msg("shutting down")
	a.super.Close()
	return nil
}

func newEnableCmd() *cobra.Command {
	c := &enableCmd{}
	cmd := &cobra.Command{
		Use:   "enable <source-id>",
		Short: "open a tunnel to a data source and write its connection profile",
		Long:  enableDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.validate(args); err != nil {
				return err
			}
			return c.run(args[0])
		},
	}
	cmd.Flags().BoolVarP(&c.wait, "wait", "w", false, "hold the tunnel open in the foreground")
	return cmd
}
