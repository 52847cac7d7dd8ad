/*
 * rv64sim - TCP-exposed monitor session.
 *
 * Copyright 2026, rv64sim contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package debugport exposes the monitor's command table over a bare TCP
// listener (spec §4.12). Grounded on the teacher's telnet/listener.go
// accept loop and bounded Stop — a Server owns a net.Listener, spawns
// one goroutine per accepted connection, and shuts down with the same
// close-then-wait-with-timeout pattern emu/core.Core.Stop uses. Unlike
// the teacher's telnet package, this carries none of the RFC 854 IAC
// option-negotiation or 3270 terminal-type detection: a debug session
// is a plain line-oriented protocol, so that machinery has no job to do
// here (see DESIGN.md).
package debugport

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/rv64lab/rv64sim/command/monitor"
)

// Server accepts connections on addr and hands each one its own
// Monitor session.
type Server struct {
	listener net.Listener
	mon      *monitor.Monitor
	log      *slog.Logger

	wg       sync.WaitGroup
	shutdown chan struct{}
}

// New starts listening on addr (e.g. ":9001") and returns a Server
// whose Start has not yet been called.
func New(addr string, mon *monitor.Monitor, log *slog.Logger) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{listener: l, mon: mon, log: log, shutdown: make(chan struct{})}, nil
}

// Start spawns the accept loop.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.acceptLoop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				s.log.Warn("debugport accept", "error", err)
				return
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.log.Info("debugport connection", "remote", conn.RemoteAddr())
	fmt.Fprint(conn, "rv64sim> ")
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		out, quit, err := s.mon.ProcessCommand(scanner.Text())
		if out != "" {
			fmt.Fprint(conn, out)
		}
		if err != nil {
			fmt.Fprintf(conn, "error: %s\n", err.Error())
		}
		if quit {
			return
		}
		fmt.Fprint(conn, "rv64sim> ")
	}
}

// Stop closes the listener and waits (bounded) for in-flight
// connections to finish, the same timeout-guarded join emu/core.Core.Stop
// uses.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.log.Warn("timed out waiting for debugport connections to close")
	}
}
