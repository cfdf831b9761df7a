package cmd

import (
	"fmt"
	"os"

	"github.com/machingclee/muxtcp/cmd/hello"
	"github.com/machingclee/muxtcp/cmd/serve"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "muxtcp",
		Short: "readiness-multiplexed TCP server",
		Long: fmt.Sprintf(`muxtcp (v%s)

A single-threaded TCP server that serves a fixed number of peers through
readiness multiplexing, plus a client that speaks its hello handshake.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of muxtcp",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("muxtcp v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(hello.HelloCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
