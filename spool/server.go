/*
 * IECPrint - Print server.
 *
 * Copyright 2024, Richard Cornwell
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

package spool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rcornwell/iecprint/emu/dispatch"
	"github.com/rcornwell/iecprint/spool/mps803"
)

// Information kept about each received job.
type JobInfo struct {
	ID       string    `json:"id"`
	Received time.Time `json:"received"`
	Remote   string    `json:"remote"`
	Bytes    int       `json:"bytes"`
	Raw      string    `json:"raw"`
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Pages    []string  `json:"pages"`
	Printed  bool      `json:"printed"`
	Error    string    `json:"error,omitempty"`
}

// Send rendered file to a printer.
type PrintFunc func(ctx context.Context, command string, file string) error

var ErrEmpty = errors.New("empty job")

type Server struct {
	cfg        Config
	wg         sync.WaitGroup
	listener   net.Listener
	httpLn     net.Listener
	httpSrv    *http.Server
	shutdown   chan struct{}
	connection chan net.Conn
	hub        *hub
	print      PrintFunc

	mu   sync.Mutex
	jobs []JobInfo
}

// Run print command with file name as argument.
func runPrint(ctx context.Context, command string, file string) error {
	out, err := exec.CommandContext(ctx, command, file).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", command, file, err, out)
	}
	return nil
}

// Open listeners for new server.
func New(cfg Config) (*Server, error) {
	if cfg.History <= 0 {
		cfg.History = DefaultConfig().History
	}
	if cfg.Width <= 0 {
		cfg.Width = mps803.DefaultWidth
	}
	if cfg.PrintCmd == "" {
		cfg.PrintCmd = DefaultConfig().PrintCmd
	}
	for _, dir := range []string{cfg.OutDir, filepath.Join(cfg.OutDir, "raw")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("output directory: %w", err)
		}
	}

	listener, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on address %s: %w", cfg.Listen, err)
	}
	s := &Server{
		cfg:        cfg,
		listener:   listener,
		shutdown:   make(chan struct{}),
		connection: make(chan net.Conn),
		hub:        newHub(),
		print:      runPrint,
	}

	if cfg.HTTP != "" {
		s.httpLn, err = net.Listen("tcp", cfg.HTTP)
		if err != nil {
			listener.Close()
			return nil, fmt.Errorf("failed to listen on address %s: %w", cfg.HTTP, err)
		}
		s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	}
	return s, nil
}

// Replace print command runner.
func (s *Server) SetPrinter(fn PrintFunc) {
	s.print = fn
}

// Address jobs are received on.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Address of status server, nil if not enabled.
func (s *Server) HTTPAddr() net.Addr {
	if s.httpLn == nil {
		return nil
	}
	return s.httpLn.Addr()
}

// Start accepting jobs.
func (s *Server) Start() {
	s.wg.Add(2)
	go s.acceptConnections()
	go s.handleConnections()
	slog.Info("Print server started", "addr", s.listener.Addr().String(), "output", s.cfg.OutDir)

	if s.httpSrv != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			err := s.httpSrv.Serve(s.httpLn)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Status server failed", "error", err)
			}
		}()
		slog.Info("Status server started", "addr", s.httpLn.Addr().String())
	}
}

// Accept a connection.
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
			}
			slog.Warn("Accept failed", "error", err)
			time.Sleep(10 * time.Millisecond)
			continue
		}
		select {
		case s.connection <- conn:
		case <-s.shutdown:
			conn.Close()
			return
		}
	}
}

// Start processing for a new connection.
func (s *Server) handleConnections() {
	defer s.wg.Done()

	for {
		select {
		case <-s.shutdown:
			return
		case conn := <-s.connection:
			slog.Info("Connection", "remote", conn.RemoteAddr().String())
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleClient(conn)
			}()
		}
	}
}

// Read one job up to end of stream.
func (s *Server) handleClient(conn net.Conn) {
	defer conn.Close()
	if s.cfg.ReadTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(time.Duration(s.cfg.ReadTimeout) * time.Second))
	}
	data, err := io.ReadAll(conn)
	if err != nil {
		// Keep what arrived before the error.
		slog.Warn("Job read failed", "remote", conn.RemoteAddr().String(), "error", err, "bytes", len(data))
	}
	if _, err := s.Process(conn.RemoteAddr().String(), data); err != nil && !errors.Is(err, ErrEmpty) {
		slog.Error("Job failed", "error", err)
	}
}

// Store, render and optionally print one job.
func (s *Server) Process(remote string, data []byte) (JobInfo, error) {
	if len(data) == 0 {
		return JobInfo{}, ErrEmpty
	}
	job := dispatch.NewJob(0, data)
	info := JobInfo{
		ID:       job.ID.String(),
		Received: job.Received,
		Remote:   remote,
		Bytes:    len(data),
		Raw:      filepath.Join(s.cfg.OutDir, "raw", dispatch.FileName(job)),
	}

	err := os.WriteFile(info.Raw, data, 0o644)
	if err == nil {
		err = s.render(&info, data)
	}
	if err == nil && s.cfg.Print {
		err = s.printPages(&info)
	}
	if err != nil {
		info.Error = err.Error()
	}
	slog.Info("Job received", "id", info.ID, "bytes", info.Bytes, "pages", len(info.Pages))

	s.mu.Lock()
	s.jobs = append(s.jobs, info)
	if len(s.jobs) > s.cfg.History {
		s.jobs = s.jobs[len(s.jobs)-s.cfg.History:]
	}
	s.mu.Unlock()
	s.hub.broadcast(info)
	return info, err
}

func (s *Server) render(info *JobInfo, data []byte) error {
	img := mps803.Render(data, s.cfg.Width)
	info.Width = img.Bounds().Dx()
	info.Height = img.Bounds().Dy()
	pages := mps803.Layout(img, s.cfg.Paper())
	name := info.Received.Format("20060102_150405") + "_" + info.ID[:8] + ".bmp"
	files, err := mps803.WriteBMP(filepath.Join(s.cfg.OutDir, name), pages)
	info.Pages = files
	return err
}

func (s *Server) printPages(info *JobInfo) error {
	for _, file := range info.Pages {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := s.print(ctx, s.cfg.PrintCmd, file)
		cancel()
		if err != nil {
			return err
		}
	}
	info.Printed = true
	return nil
}

// Jobs received, oldest first.
func (s *Server) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]JobInfo(nil), s.jobs...)
}

// Find job by id.
func (s *Server) Job(id string) (JobInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.ID == id {
			return job, true
		}
	}
	return JobInfo{}, false
}

// Stop a running server.
func (s *Server) Stop() {
	close(s.shutdown)
	s.listener.Close()
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = s.httpSrv.Shutdown(ctx)
		cancel()
	}
	s.hub.close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for connections to finish")
	}
}
