package connect

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platformeng/dataconnect/pkg/errdefs"
)

type datasetsCmd struct{}

func (c *datasetsCmd) run(sourceID string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	src, ok := a.catalog.Lookup(sourceID)
	if !ok {
		return &errdefs.UnknownSourceError{SourceID: sourceID, Available: a.catalog.IDs()}
	}

	datasets := src.Datasets()
	if len(datasets) == 0 {
		fmt.Printf("no sample datasets registered for %s\n", src.ID)
		return nil
	}

	fmt.Printf("sample datasets on %s:\n", src.ID)
	for _, ds := range datasets {
		fmt.Printf("  %s - %s\n", ds.Name, ds.Title)
		fmt.Printf("      %s\n", ds.Description)
		fmt.Printf("      size: %s, tables: %s\n", ds.Size, strings.Join(ds.Tables, ", "))
		fmt.Printf("      use case: %s\n", ds.UseCase)
	}
	return nil
}

func newDatasetsCmd() *cobra.Command {
	c := &datasetsCmd{}
	return &cobra.Command{
		Use:   "datasets <source-id>",
		Short: "describe the sample datasets available on a data source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(args[0])
		},
	}
}
