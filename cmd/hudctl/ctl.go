package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	hdbus "github.com/jmylchreest/hudbridge/internal/dbus"
)

// ctlCmd talks to a running 'hudctl inspect' over D-Bus.
var ctlCmd = &cobra.Command{
	Use:   "ctl",
	Short: "Control a running hudctl session over D-Bus",
	Long: `Control a running hudctl session over D-Bus.

The session must have been started with [control] dbus = true in the config.

Examples:
  hudctl ctl stack
  hudctl ctl attach confirm
  hudctl ctl raise inventory`,
}

func ctlClient() (*hdbus.Client, error) {
	return hdbus.NewClient(cfg.Control.BusName)
}

// ctlNameCmd builds a subcommand that sends one named request.
func ctlNameCmd(use, short string, call func(c *hdbus.Client, name string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <surface>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctlClient()
			if err != nil {
				return err
			}
			return call(c, args[0])
		},
	}
}

var ctlStackCmd = &cobra.Command{
	Use:   "stack",
	Short: "Print the surface stack, front-most first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ctlClient()
		if err != nil {
			return err
		}
		entries, err := c.Stack()
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(os.Stdout, "%-16s %-7s %s\n", e.Name, e.Kind, flags(e))
		}
		return nil
	},
}

var ctlFrameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Render one frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ctlClient()
		if err != nil {
			return err
		}
		return c.Frame()
	},
}

func flags(e hdbus.StackEntry) string {
	var parts []string
	if !e.Attached {
		parts = append(parts, "detached")
	}
	if e.Disabled {
		parts = append(parts, "disabled")
	}
	if e.Focused {
		parts = append(parts, "focused")
	}
	if e.External {
		parts = append(parts, "external")
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(ctlCmd)
	ctlCmd.AddCommand(ctlStackCmd)
	ctlCmd.AddCommand(ctlFrameCmd)
	ctlCmd.AddCommand(ctlNameCmd("attach", "Attach a surface", (*hdbus.Client).Attach))
	ctlCmd.AddCommand(ctlNameCmd("detach", "Detach a surface", (*hdbus.Client).Detach))
	ctlCmd.AddCommand(ctlNameCmd("raise", "Raise a surface", (*hdbus.Client).Raise))
	ctlCmd.AddCommand(ctlNameCmd("external", "Move a window in or out of its own OS window", (*hdbus.Client).ToggleExternal))
}
