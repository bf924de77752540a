// Command zisk-coordinator runs the distributed coordinator: it accepts
// worker registrations over grpc, allocates compute capacity to incoming
// LaunchProof requests, and evicts workers that miss their heartbeat
// deadline.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"

	"github.com/zisk-core/provercore/dist"
	"github.com/zisk-core/provercore/dist/coordinator"
)

func main() {
	var (
		port            uint16
		heartbeatEvery  time.Duration
		heartbeatExpiry time.Duration
	)
	pflag.Uint16Var(&port, "port", 7100, "TCP port to listen on")
	pflag.DurationVar(&heartbeatEvery, "heartbeat-poll", 5*time.Second, "how often to sweep for stale workers")
	pflag.DurationVar(&heartbeatExpiry, "heartbeat-timeout", 30*time.Second, "how long a worker may go silent before eviction")
	pflag.Parse()

	log := logrus.WithField("component", "zisk-coordinator")

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Errorf("bind port %d: %v", port, err)
		os.Exit(2)
	}

	registry := coordinator.NewRegistry(nil)
	manager := coordinator.NewManager(registry)

	grpcServer := grpc.NewServer(dist.ServerOption())
	dist.RegisterCoordinatorServer(grpcServer, dist.NewCoordinatorServer(registry, manager))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go evictionSweep(ctx, registry, manager, heartbeatEvery, heartbeatExpiry, log)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		grpcServer.GracefulStop()
	}()

	log.WithField("port", port).Info("coordinator listening")
	if err := grpcServer.Serve(ln); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func evictionSweep(ctx context.Context, registry *coordinator.Registry, manager *coordinator.Manager, every, timeout time.Duration, log *logrus.Entry) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, evicted := range registry.EvictStale(timeout) {
				log.WithField("worker_id", evicted.ID).Warn("worker heartbeat timeout, evicting")
				manager.HandleEviction(evicted)
			}
		}
	}
}
