package hello

import (
	"fmt"
	"net"
	"strconv"

	cmdUtil "github.com/machingclee/muxtcp/cmd/util"
	"github.com/machingclee/muxtcp/mux/client"
	"github.com/machingclee/muxtcp/mux/codec"
	"github.com/machingclee/muxtcp/mux/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// HelloCmd probes one or more servers with the protocol handshake
	HelloCmd = &cobra.Command{
		Use:   "hello address [address...]",
		Short: "Probe servers with the protocol handshake",
		Long:  `Connect to one or more muxtcp servers, read the hello each one sends on accept and report whether the protocol versions match. Addresses without a port use the default port ` + strconv.Itoa(common.DefaultPort) + `.`,
		Args:  cobra.MinimumNArgs(1),
		RunE:  run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitEnvConfig)

	// add flags
	key := "timeout"
	HelloCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("The timeout in seconds for connecting and reading the handshake"))

	key = "log-level"
	HelloCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// run probes every given endpoint concurrently and prints one report line each
func run(cmd *cobra.Command, args []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	common.InitLoggers(viper.GetString("log-level"))

	endpoints := make([]string, 0, len(args))
	for _, arg := range args {
		endpoints = append(endpoints, withDefaultPort(arg))
	}

	config := common.ClientConfig{
		Endpoints:     endpoints,
		TimeoutSecond: viper.GetInt("timeout"),
		LogLevel:      viper.GetString("log-level"),
	}

	results := client.NewHelloClient(config, codec.NewBinaryCodec()).ProbeAll()

	failed := 0
	for _, result := range results {
		fmt.Printf("%s: %s\n", result.Endpoint, result.Report())
		if result.Outcome != client.OutcomeMatch {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d probes did not complete the handshake", failed, len(results))
	}
	return nil
}

// withDefaultPort appends the default port to addresses that lack one
func withDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(common.DefaultPort))
}
