/*
 * IECPrint - Print job dispatcher test cases.
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

package dispatch

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

type result struct {
	job *Job
	err error
}

// Print server that records each connection as one job.
func listen(t *testing.T) (Target, chan []byte) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Unable to listen: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	jobs := make(chan []byte, 4)
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			data, _ := io.ReadAll(conn)
			conn.Close()
			jobs <- data
		}
	}()
	host, port, _ := net.SplitHostPort(l.Addr().String())
	p, _ := strconv.Atoi(port)
	return Target{Host: host, Port: p, Chunk: 16, Timeout: time.Second}, jobs
}

func newDispatcher(target Target, spool string) (*Dispatcher, chan result) {
	d := New(target, spool, 2)
	done := make(chan result, 4)
	d.OnDone(func(job *Job, err error) { done <- result{job, err} })
	d.Start()
	return d, done
}

func wait(t *testing.T, done chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(5 * time.Second):
		t.Fatalf("Job not delivered")
	}
	return result{}
}

func TestDispatchNetwork(t *testing.T) {
	target, jobs := listen(t)
	d, done := newDispatcher(target, "")
	defer d.Stop()

	data := bytes.Repeat([]byte("0123456789"), 10)
	job := NewJob(4, data)
	if err := d.Submit(job); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	r := wait(t, done)
	if r.err != nil || r.job != job {
		t.Errorf("Delivery error %v", r.err)
	}
	got := <-jobs
	if !bytes.Equal(got, data) {
		t.Errorf("Server got %d bytes expected %d", len(got), len(data))
	}
	st := d.Stats()
	if st.Sent != 1 || st.Bytes != 100 || st.Failed != 0 {
		t.Errorf("Stats %+v", st)
	}
}

// Job data is copied when the job is made.
func TestDispatchCopy(t *testing.T) {
	data := []byte("ABCDEFGHIJ")
	job := NewJob(4, data)
	data[0] = 'Z'
	if job.Data[0] != 'A' {
		t.Errorf("Job shares buffer with caller")
	}
	if job.ID == NewJob(4, data).ID {
		t.Errorf("Job ids not unique")
	}
}

func TestDispatchSpool(t *testing.T) {
	dir := t.TempDir()
	d, done := newDispatcher(Target{}, dir)
	defer d.Stop()

	job := NewJob(4, []byte("SPOOLED JOB"))
	if err := d.Submit(job); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if r := wait(t, done); r.err != nil {
		t.Fatalf("Spool error %v", r.err)
	}
	got, err := os.ReadFile(filepath.Join(dir, FileName(job)))
	if err != nil {
		t.Fatalf("Spool file: %v", err)
	}
	if string(got) != "SPOOLED JOB" {
		t.Errorf("Spool file contains %q", got)
	}
	if d.Stats().Spooled != 1 {
		t.Errorf("Spooled count %d", d.Stats().Spooled)
	}
}

// Server not there, job lands in spool directory.
func TestDispatchFallback(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Unable to listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	target, err := ParseTarget(addr)
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	target.Timeout = time.Second

	dir := t.TempDir()
	d, done := newDispatcher(target, dir)
	defer d.Stop()
	job := NewJob(4, []byte("FALLBACK"))
	_ = d.Submit(job)
	if r := wait(t, done); r.err != nil {
		t.Errorf("Fallback error %v", r.err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName(job))); err != nil {
		t.Errorf("Fallback file missing: %v", err)
	}
}

func TestDispatchNoTarget(t *testing.T) {
	d, done := newDispatcher(Target{}, "")
	defer d.Stop()
	_ = d.Submit(NewJob(4, []byte("LOST")))
	if r := wait(t, done); !errors.Is(r.err, ErrNoTarget) {
		t.Errorf("Expected no target got %v", r.err)
	}
	if d.Stats().Failed != 1 {
		t.Errorf("Failed count %d", d.Stats().Failed)
	}
}

func TestDispatchQueueFull(t *testing.T) {
	// Worker not started, queue holds two.
	d := New(Target{}, "", 2)
	for range 2 {
		if err := d.Submit(NewJob(4, []byte("X"))); err != nil {
			t.Errorf("Submit failed: %v", err)
		}
	}
	if err := d.Submit(NewJob(4, []byte("X"))); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected queue full got %v", err)
	}
	if d.Queued() != 2 {
		t.Errorf("Queued %d", d.Queued())
	}
	d.Stop()
	if err := d.Submit(NewJob(4, []byte("X"))); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected stopped got %v", err)
	}
}

func TestParseTarget(t *testing.T) {
	tg, err := ParseTarget("printhost:9100")
	if err != nil || tg.Host != "printhost" || tg.Port != 9100 || tg.Chunk != DefaultChunk {
		t.Errorf("Parse host:port got %+v %v", tg, err)
	}
	tg, err = ParseTarget("printhost")
	if err != nil || tg.Port != DefaultPort {
		t.Errorf("Parse host got %+v %v", tg, err)
	}
	if _, err := ParseTarget("printhost:0"); err == nil {
		t.Errorf("Port 0 accepted")
	}
	tg, _ = ParseTarget("")
	if tg.Valid() || tg.String() != "none" {
		t.Errorf("Empty target valid")
	}
}

func TestTCPChunks(t *testing.T) {
	target, jobs := listen(t)
	target.Chunk = 4
	s, err := dialTCP(target)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if err := s.Push([]byte("ABCDEF")); err != nil {
		t.Errorf("Push: %v", err)
	}
	if len(s.buf) != 2 {
		t.Errorf("Partial chunk held %d bytes", len(s.buf))
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if got := <-jobs; string(got) != "ABCDEF" {
		t.Errorf("Server got %q", got)
	}
}
