// Package procsup implements the worker child-process spawn and
// socket bring-up described in spec §4.4: fork+exec the worker binary,
// derive its per-pid socket path, and dial it with a bounded retry
// loop tolerating the worker's listen() not yet being up.
package procsup

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"time"

	"github.com/sx-aurora/veostub/internal/constants"
)

// SocketPath derives the per-pid AF_LOCAL socket path for a worker
// child (spec §6).
func SocketPath(pid int) string {
	return fmt.Sprintf(constants.SocketPathFormat, pid)
}

// workerBin resolves the worker executable: VEORUN_BIN if set,
// otherwise the well-known name resolved through PATH (spec §4.4).
func workerBin() string {
	if bin := os.Getenv(constants.VeorunBinEnv); bin != "" {
		return bin
	}
	return constants.WorkerBinDefault
}

// Spawn forks the worker binary for node and returns the running
// child plus its derived socket path. The caller owns the child's
// lifetime (reaping it via cmd.Wait after requesting QUIT).
func Spawn(node int) (*exec.Cmd, string, error) {
	cmd := exec.Command(workerBin())
	cmd.Env = append(os.Environ(), fmt.Sprintf("VEOSTUB_NODE=%d", node))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, "", fmt.Errorf("procsup: spawn worker: %w", err)
	}
	return cmd, SocketPath(cmd.Process.Pid), nil
}

// DialWithRetry connects to the worker's per-pid socket, retrying on
// ECONNREFUSED/ENOENT (the worker hasn't called listen() yet) up to
// constants.ConnectRetryAttempts times (spec §4.4's "implementation-
// defined retry cap, order of one second total").
func DialWithRetry(socketPath string) (net.Conn, error) {
	var lastErr error
	for i := 0; i < constants.ConnectRetryAttempts; i++ {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(constants.ConnectRetryInterval)
	}
	return nil, fmt.Errorf("procsup: dial %s: %w", socketPath, lastErr)
}
