package serve

import (
	"fmt"

	cmdUtil "github.com/machingclee/muxtcp/cmd/util"
	"github.com/machingclee/muxtcp/lib/sessionlog"
	"github.com/machingclee/muxtcp/mux/codec"
	"github.com/machingclee/muxtcp/mux/common"
	"github.com/machingclee/muxtcp/mux/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the muxtcp server",
		Long:    `Start the muxtcp server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is MUXTCP_<flag> (e.g. MUXTCP_PORT=5555)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitEnvConfig)

	// add flags
	key := "host"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The local address the listening socket binds to. An empty value binds all interfaces"))

	key = "port"
	ServeCmd.PersistentFlags().Int(key, common.DefaultPort, cmdUtil.WrapString("The TCP port the listening socket binds to. Port 0 picks a free port"))

	key = "max-peers"
	ServeCmd.PersistentFlags().Int(key, common.DefaultMaxPeers, cmdUtil.WrapString("The fixed capacity of the connection table. Connections arriving while the table is full are closed immediately"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultBufferSize, cmdUtil.WrapString("The receive buffer size of each peer slot in bytes"))

	key = "backlog"
	ServeCmd.PersistentFlags().Int(key, common.DefaultBacklog, cmdUtil.WrapString("The listen backlog passed to the kernel"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Whether to disable Nagle's algorithm on accepted connections"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval for accepted connections (in seconds, 0 disables)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time for accepted connections (in seconds, negative keeps the kernel default)"))

	key = "tcp-read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The kernel receive buffer size for accepted connections (in KB, 0 keeps the kernel default)"))

	key = "tcp-write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The kernel send buffer size for accepted connections (in KB, 0 keeps the kernel default)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The address on which the metrics HTTP listener serves /metrics (e.g. localhost:9100). An empty value disables the listener"))

	key = "session-db"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("The path of the sqlite database the session audit log is written to. An empty value disables session logging"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.Host = viper.GetString("host")
	serveCmdConfig.Port = viper.GetInt("port")
	serveCmdConfig.MaxPeers = viper.GetInt("max-peers")
	serveCmdConfig.BufferSize = viper.GetInt("buffer-size")
	serveCmdConfig.Backlog = viper.GetInt("backlog")
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.SessionDBPath = viper.GetString("session-db")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	serveCmdConfig.TCP = common.TCPConf{
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
		SocketConf: common.SocketConf{
			ReadBufferSize:  viper.GetInt("tcp-read-buffer") * 1024,
			WriteBufferSize: viper.GetInt("tcp-write-buffer") * 1024,
		},
	}

	// validate table dimensions here so a bad environment value fails the
	// command instead of the server constructor
	if serveCmdConfig.MaxPeers <= 0 {
		return fmt.Errorf("max-peers must be positive, got %d", serveCmdConfig.MaxPeers)
	}
	if serveCmdConfig.BufferSize <= 0 {
		return fmt.Errorf("buffer-size must be positive, got %d", serveCmdConfig.BufferSize)
	}

	return nil
}

// run starts the muxtcp server
func run(_ *cobra.Command, _ []string) error {
	common.InitLoggers(serveCmdConfig.LogLevel)

	fmt.Println(serveCmdConfig.String())

	// optional session audit log
	var recorder *sessionlog.Recorder
	if serveCmdConfig.SessionDBPath != "" {
		var err error
		recorder, err = sessionlog.NewRecorder(serveCmdConfig.SessionDBPath)
		if err != nil {
			return fmt.Errorf("open session log: %w", err)
		}
		defer func() { _ = recorder.Close() }()
	}

	serv, err := server.NewServer(
		*serveCmdConfig,
		codec.NewBinaryCodec(),
		recorder,
	)
	if err != nil {
		return err
	}

	if err := serv.Listen(); err != nil {
		return err
	}

	return serv.Serve()
}
