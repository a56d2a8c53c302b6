package cmd

import (
	"github.com/spf13/cobra"

	"github.com/platformeng/dataconnect/cmd/connect"
)

const (
	dataConnectDesc = `
dataconnect manages secure connectivity to the platform's shared data
sources. It opens SSH tunnels through the per-cloud bastion hosts, keeps them
healthy in the background and writes connection profiles consumed by the
federated query engine.
Detailed help for each command is available with 'dataconnect help <command>'.
`
)

func NewCmdDataConnect() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataconnect",
		Short: "tunnel to shared data sources and manage their connection profiles",
		Long:  dataConnectDesc,
	}
	cmd.AddCommand(connect.NewCommands()...)

	return cmd
}
