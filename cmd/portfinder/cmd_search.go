package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/portfinder/pkg/cli"
	"github.com/newtron-network/portfinder/pkg/resolver"
)

var searchAll bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find a MAC address, host or port description",
	Long: `Search the fleet. The query is matched as a hostname first, then as a
MAC address in any common notation, then as a case-insensitive substring
of a port description.

Examples:
  portfinder search aa:bb:cc:dd:ee:ff
  portfinder search SW1
  portfinder search --all printer`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		if searchAll {
			recs, err := app.SearchAll(cmd.Context(), query)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(recs)
			}
			printRecordTable(recs)
			return nil
		}

		rec, err := app.Search(cmd.Context(), query)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rec)
		}
		cli.PrintRecord(os.Stdout, rec)
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&searchAll, "all", "a", false, "Return every description match")
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show interface details",
	Long: `Show one interface, read live from the device.

Examples:
  portfinder -d SW1 -i Gi1/0/5 show`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInterface(); err != nil {
			return err
		}
		rec, err := app.GetInterfaceDetails(cmd.Context(), deviceName, interfaceName)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(rec)
		}
		cli.PrintRecord(os.Stdout, rec)
		return nil
	},
}

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "List the inventory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hosts := app.Hosts()
		if jsonOutput {
			return printJSON(hosts)
		}
		t := cli.NewTable("HOST", "ROUTER")
		for _, h := range hosts {
			router := h.Router
			if router == "" {
				router = cli.Dim(resolver.UnknownRouter)
			}
			t.Row(h.Name, router)
		}
		t.Flush()
		return nil
	},
}

func printRecordTable(recs []*resolver.Record) {
	t := cli.NewTable("HOST", "INTERFACE", "VLAN", "DESCRIPTION", "ROUTER")
	for _, r := range recs {
		t.Row(r.Host, r.Interface, r.VLAN, r.Description, r.Router)
	}
	t.Flush()
	fmt.Printf("\n%d match(es)\n", len(recs))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
