package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/zisk-core/provercore/server"
	"github.com/zisk-core/provercore/zkerr"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve a single-ELF prover over a framed TCP connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireElf(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ln, err := server.Listen("tcp", fmt.Sprintf(":%d", flagPort))
		if err != nil {
			return zkerr.New(zkerr.PortInUse, fmt.Sprintf("binding port %d", flagPort), err)
		}

		srv := server.New(serverID(), flagElfPath, newEmptyPipeline(), nil)
		logrus.WithField("port", flagPort).Info("prover server listening")
		if err := srv.Serve(ctx, ln); err != nil {
			return zkerr.New(zkerr.Internal, "server exited", err)
		}
		return nil
	},
}

func serverID() string {
	host, err := os.Hostname()
	if err != nil {
		return "cargo-zisk-server"
	}
	return host
}
