package main

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/newtron-network/portfinder/pkg/change"
	"github.com/newtron-network/portfinder/pkg/cli"
)

var (
	executeMode    bool
	vlanDesc       string
	currentVLANArg string
)

var setVlanCmd = &cobra.Command{
	Use:   "set-vlan <vlan>",
	Short: "Move an access port to another VLAN",
	Long: `Move an access port to a VLAN that exists on the switch.

Without -x the change is validated against live device state and
previewed. With -x it is validated again, applied, and read back.

Examples:
  portfinder -d SW1 -i Gi1/0/5 set-vlan 20
  portfinder -d SW1 -i Gi1/0/5 set-vlan 20 --description "printer room 2" -x`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireInterface(); err != nil {
			return err
		}

		out := app.SubmitVlanChange(cmd.Context(), change.Request{
			Host:        deviceName,
			Interface:   interfaceName,
			VLAN:        args[0],
			CurrentVLAN: currentVLANArg,
			Description: vlanDesc,
			Confirm:     executeMode,
			User:        currentUser(),
			RequestID:   uuid.NewString(),
		})
		if jsonOutput {
			if err := printJSON(out); err != nil {
				return err
			}
		} else {
			printOutcome(out)
		}

		switch out.Kind {
		case change.KindRejected, change.KindFailed:
			return fmt.Errorf("VLAN change %s", out.Kind)
		}
		return nil
	},
}

func init() {
	setVlanCmd.Flags().BoolVarP(&executeMode, "execute", "x", false, "Apply the change (default is preview)")
	setVlanCmd.Flags().StringVar(&vlanDesc, "description", "", "Also set the port description")
	setVlanCmd.Flags().StringVar(&currentVLANArg, "current-vlan", "", "Current VLAN to show when the device cannot report one")
}

func printOutcome(out *change.Outcome) {
	fmt.Printf("%s  %s\n", cli.Status(string(out.Kind)), out.Message)

	if out.ChangeSet != nil && out.Kind == change.KindPending {
		fmt.Println()
		fmt.Print(out.ChangeSet.Preview())
		fmt.Println("\n" + cli.Yellow("DRY-RUN: No changes applied. Use -x to execute."))
	}
	if out.ConfigOutput != "" {
		fmt.Println("\n" + cli.Bold("Device output:"))
		fmt.Println(strings.TrimRight(out.ConfigOutput, "\n"))
	}
	if out.VerifyOutput != "" {
		fmt.Println("\n" + cli.Bold("Running configuration:"))
		fmt.Println(strings.TrimRight(out.VerifyOutput, "\n"))
	}
	if out.Kind == change.KindApplied && !out.Verified {
		fmt.Println("\n" + cli.Yellow("Warning: the device does not yet report the new VLAN."))
	}
	if out.Record != nil && out.Kind != change.KindPending {
		fmt.Println()
		cli.PrintRecord(os.Stdout, out.Record)
	}
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}
