package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dl/goring/internal/cli"
)

var cfg cli.Config

var rootCmd = &cobra.Command{
	Use:   "goring",
	Short: "io_uring playground: file and socket I/O driven through a single ring",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.FromEnv(); err != nil {
			return err
		}
		return cfg.Validate()
	},
	SilenceUsage: true,
}

var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Run a TCP echo server on the ring",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.RunEcho(cfg))
	},
}

var catCmd = &cobra.Command{
	Use:   "cat FILE...",
	Short: "Print files to stdout, reading them through the ring",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(cli.RunCat(cfg, args))
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.Uint32Var(&cfg.Depth, "depth", 0, "submission queue depth")
	pf.Uint32Var(&cfg.BufSize, "bufsize", 0, "read buffer size in bytes")
	pf.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log per-connection events")

	ef := echoCmd.Flags()
	ef.StringVar(&cfg.ListenIP, "listen", "", "address to listen on")
	ef.Uint16Var(&cfg.Port, "port", 0, "port to listen on")
	ef.BoolVarP(&cfg.V6, "ipv6", "6", false, "listen on an IPv6 address")
	ef.Int32Var(&cfg.Backlog, "backlog", 0, "listen backlog")

	rootCmd.AddCommand(echoCmd, catCmd)
}

func main() {
	// Optional .env file; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "goring:", err)
		os.Exit(2)
	}
}
