package connect

import "github.com/spf13/cobra"

// NewCommands returns the source-management command set.
func NewCommands() []*cobra.Command {
	return []*cobra.Command{
		newEnableCmd(),
		newDisableCmd(),
		newInfoCmd(),
		newListCmd(),
		newDatasetsCmd(),
		newDaemonCmd(),
	}
}
