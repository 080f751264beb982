package main

import (
	"fmt"
	"os"

	"github.com/BigDEM0N/net-work-lab/config"
	"github.com/spf13/cobra"
)

const (
	_version = "0.1.0"
)

var path string

var rootCmd = &cobra.Command{
	Use:   "netlab",
	Short: "netlab - a userspace IPv4/UDP stack on a TUN device",
	Long: `netlab attaches a minimal IPv4 stack to a TUN interface. It answers ICMP
echo, reports unreachable ports and protocols, and serves UDP echo and a
static DNS zone on the address configured for the interface.`,
	SilenceUsage: true,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.ParseRawConfig(path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "VALID: %s on %s (%s), mtu %d, service ports %v\n",
			c.Path, c.Interface.Name, c.Interface.Prefix, c.Interface.MTU, c.ServicePorts())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "netlab: %v\n", _version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&path, "config", "c", "./config.yaml",
		"path of yaml configuration file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
