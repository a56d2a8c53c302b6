package connect

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type disableCmd struct{}

func (c *disableCmd) run(sourceID string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.super.Disable(context.Background(), sourceID); err != nil {
		return err
	}
	fmt.Printf("%s disabled\n", sourceID)
	return nil
}

func newDisableCmd() *cobra.Command {
	c := &disableCmd{}
	return &cobra.Command{
		Use:   "disable <source-id>",
		Short: "tear down a data source's tunnel and remove its connection profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(args[0])
		},
	}
}
