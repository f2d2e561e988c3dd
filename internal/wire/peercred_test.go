//go:build linux

package wire

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestPeerCredentialsOverUnixSocket(t *testing.T) {
	dir := t.TempDir()
	sockPath := filepath.Join(dir, "peercred.sock")

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("unix", sockPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	pid, uid, _, ok := PeerCredentials(server)
	if !ok {
		t.Fatalf("expected PeerCredentials to succeed over a real unix socket")
	}
	if pid != int32(os.Getpid()) {
		t.Errorf("peer pid = %d, want %d", pid, os.Getpid())
	}
	if uid != int32(os.Getuid()) {
		t.Errorf("peer uid = %d, want %d", uid, os.Getuid())
	}
}

func TestPeerCredentialsOnNonUnixConn(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	if _, _, _, ok := PeerCredentials(client); ok {
		t.Errorf("expected PeerCredentials to fail on a net.Pipe connection")
	}
}
