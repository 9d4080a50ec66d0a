// PortFinder - switch port locator and access-VLAN tool
//
// Finds where a MAC address, hostname or port description lives in a fleet
// of Cisco IOS switches and moves access ports between VLANs with a
// preview-then-confirm workflow.
//
// Usage:
//
//	portfinder search <mac|host|description>          # First match
//	portfinder search --all <description>             # Every description match
//	portfinder -d <device> -i <interface> show        # Interface details
//	portfinder -d <device> -i <interface> set-vlan 20 # Preview the change
//	portfinder -d <device> -i <interface> set-vlan 20 -x
//	portfinder hosts
//	portfinder serve --listen :8080
//
// Write commands preview by default; -x executes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/portfinder/pkg/device"
	"github.com/newtron-network/portfinder/pkg/inventory"
	"github.com/newtron-network/portfinder/pkg/network"
	"github.com/newtron-network/portfinder/pkg/portfinder"
	"github.com/newtron-network/portfinder/pkg/settings"
	"github.com/newtron-network/portfinder/pkg/util"
	"github.com/newtron-network/portfinder/pkg/version"
)

// Environment overrides, also read from a .env file in the working directory.
const (
	envInventory      = "PORTFINDER_INVENTORY"
	envUsername       = "PORTFINDER_USERNAME"
	envPassword       = "PORTFINDER_PASSWORD"
	envEnablePassword = "PORTFINDER_ENABLE_PASSWORD"
	envRedisAddr      = "PORTFINDER_REDIS_ADDR"
	envListen         = "PORTFINDER_LISTEN"
)

var (
	// Global context flags
	deviceName    string // -d, --device
	interfaceName string // -i, --interface

	// Global option flags
	inventoryPath string
	verbose       bool
	askPass       bool
	jsonOutput    bool

	// Global state
	userSettings *settings.Settings
	fleet        *network.Network
	locker       *device.RedisLocker
	app          *portfinder.Service
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "portfinder",
	Short:             "Switch port locator and access-VLAN tool",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `PortFinder locates MAC addresses, hosts and port descriptions across a
fleet of Cisco IOS switches and changes access-port VLANs.

Every lookup reads the switches live. VLAN changes preview by default;
use -x to execute.

  portfinder -d <device> -i <interface> <verb> [args] [-x]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipInit(cmd) {
			return nil
		}

		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			util.Warnf("Could not read .env: %v", err)
		}

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if err := util.ConfigureLogging(util.LogOptions{Level: flagLogLevel()}); err != nil {
			return err
		}

		return initService()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if fleet != nil {
			fleet.Close()
		}
		if locker != nil {
			locker.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "", "Device name (object selector)")
	rootCmd.PersistentFlags().StringVarP(&interfaceName, "interface", "i", "", "Interface name (object selector)")
	rootCmd.PersistentFlags().StringVar(&inventoryPath, "inventory", "", "Inventory file (default from settings or $"+envInventory+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&askPass, "ask-pass", false, "Prompt for the device password when the inventory has none")

	for _, cmd := range []*cobra.Command{searchCmd, showCmd, setVlanCmd, hostsCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "Lookup:"},
		&cobra.Group{ID: "mutate", Title: "Changes:"},
		&cobra.Group{ID: "meta", Title: "Server, Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{searchCmd, showCmd, hostsCmd} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}
	setVlanCmd.GroupID = "mutate"
	rootCmd.AddCommand(setVlanCmd)
	for _, cmd := range []*cobra.Command{serveCmd, settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("portfinder dev build (use 'make build' for version info)")
			return
		}
		fmt.Println(version.Info())
	},
}

// skipInit reports commands that run without an inventory.
func skipInit(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "version", "help", "completion":
			return true
		}
	}
	return false
}

// initService loads the inventory and wires the fleet client, the optional
// change lock and the portfinder service.
func initService() error {
	path := firstSet(inventoryPath, os.Getenv(envInventory), userSettings.GetInventoryFile())
	inv, err := inventory.Load(path, inventory.Credentials{
		Username:       os.Getenv(envUsername),
		Password:       os.Getenv(envPassword),
		EnablePassword: os.Getenv(envEnablePassword),
	})
	if err != nil {
		return err
	}

	if missing := inv.MissingPasswords(); len(missing) > 0 {
		if !askPass {
			return fmt.Errorf("no password for %v: set %s or use --ask-pass", missing, envPassword)
		}
		password, err := promptPassword("Device password: ")
		if err != nil {
			return err
		}
		inv.FillPassword(password)
	}

	var opts []network.Option
	if d := userSettings.GetCommandTimeout(); d > 0 {
		opts = append(opts, network.WithCommandTimeout(d))
	}
	fleet = network.New(inv, opts...)

	svcOpts := portfinder.Options{MaxParallel: userSettings.MaxParallel}
	if addr := firstSet(os.Getenv(envRedisAddr), userSettings.RedisAddr); addr != "" {
		locker = device.NewRedisLocker(addr, device.DefaultLockTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := locker.Ping(ctx); err != nil {
			return fmt.Errorf("change lock redis %s: %w", addr, err)
		}
		svcOpts.Locker = locker
	}
	app = portfinder.New(fleet, svcOpts)
	return nil
}

func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--ask-pass needs a terminal on stdin")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// flagLogLevel is "debug" under --verbose and empty otherwise, which lets
// PORTFINDER_LOG_LEVEL or the command default decide.
func flagLogLevel() string {
	if verbose {
		return "debug"
	}
	return ""
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// requireInterface ensures both device and interface are specified.
func requireInterface() error {
	if deviceName == "" {
		return fmt.Errorf("device required: use -d <device> flag")
	}
	if interfaceName == "" {
		return fmt.Errorf("interface required: use -i <interface> flag")
	}
	return nil
}
