package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *app) clientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients",
		Short: "List the platform clients accessible with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newPlatformClient(a.cfg, a.logger)
			if err != nil {
				return err
			}

			clients, err := client.GetAllClients()
			if err != nil {
				return err
			}
			if len(clients) == 0 {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "No clients are accessible")
				return err
			}

			rows := make([][]string, len(clients))
			for id, c := range clients {
				marker := ""
				if c.ID == a.cfg.ClientID {
					marker = "*"
				}
				rows[id] = []string{marker, strconv.FormatUint(c.ID, 10), c.Name, c.ClientType, c.ExternalID}
			}
			writeTable(cmd.OutOrStdout(), []string{"", "ID", "Name", "Type", "External ID"}, rows)
			return nil
		},
	}
}
