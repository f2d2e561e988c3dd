// Command veo-worker is the worker-side binary spawned by ProcCreate
// (spec §4.4): it listens on its own per-pid AF_LOCAL socket, accepts
// one connection per opened Context, and serves each strictly
// sequentially until CLOSE_CONTEXT, QUIT, or peer loss.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/sx-aurora/veostub/internal/ffi"
	"github.com/sx-aurora/veostub/internal/logging"
	"github.com/sx-aurora/veostub/internal/procsup"
	"github.com/sx-aurora/veostub/internal/workersrv"
)

func main() {
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose && logConfig.Level < logrus.DebugLevel {
		logConfig.Level = logrus.DebugLevel
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)
	log := logger.Entry()

	node, _ := strconv.Atoi(os.Getenv("VEOSTUB_NODE"))

	socketPath := procsup.SocketPath(os.Getpid())
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		log.WithError(err).Error("failed to listen on worker socket")
		os.Exit(1)
	}
	defer os.Remove(socketPath)

	log.WithField("node", node).WithField("socket", socketPath).Info("worker listening")
	fmt.Fprintf(os.Stderr, "veo-worker: pid=%d node=%d socket=%s\n", os.Getpid(), node, socketPath)

	srv := workersrv.NewServer(ln, ffi.PuregoLoader{}, log)

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil {
			log.WithError(err).Warn("serve loop exited with error")
		}
	case <-sigCh:
		log.Info("received shutdown signal")
		ln.Close()
		<-serveErr
	}

	log.Info("worker exiting")
}
