/*
 * IECPrint - Print job dispatcher.
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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Defaults for network target.
const (
	DefaultPort    = 65432
	DefaultChunk   = 512
	DefaultTimeout = 5 * time.Second
	DefaultDepth   = 8
)

var (
	ErrQueueFull = errors.New("dispatch queue full")
	ErrStopped   = errors.New("dispatcher stopped")
	ErrNoTarget  = errors.New("no print server or spool directory")
)

// Job is one finished print job.
type Job struct {
	ID       uuid.UUID
	Channel  uint8
	Data     []byte
	Received time.Time
}

// Create job from a copy of data.
func NewJob(channel uint8, data []byte) *Job {
	return &Job{
		ID:       uuid.New(),
		Channel:  channel,
		Data:     append([]byte(nil), data...),
		Received: time.Now(),
	}
}

// Sink takes the bytes of one job.
type Sink interface {
	Push(data []byte) error
	Flush() error
	Close() error
}

// Network print server.
type Target struct {
	Host    string
	Port    int
	Chunk   int
	Timeout time.Duration
}

// Target has somewhere to send.
func (t Target) Valid() bool {
	return t.Host != ""
}

func (t Target) Address() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

func (t Target) String() string {
	if !t.Valid() {
		return "none"
	}
	return t.Address()
}

// Parse host:port into target with default chunk and timeout.
func ParseTarget(addr string) (Target, error) {
	t := Target{Port: DefaultPort, Chunk: DefaultChunk, Timeout: DefaultTimeout}
	if addr == "" {
		return t, nil
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// Host without a port.
		t.Host = addr
		return t, nil
	}
	p, err := strconv.Atoi(port)
	if err != nil || p <= 0 || p > 65535 {
		return t, fmt.Errorf("invalid port %q", port)
	}
	t.Host = host
	t.Port = p
	return t, nil
}

// Counters of delivered jobs.
type Stats struct {
	Sent    uint64 // Jobs delivered to the print server.
	Spooled uint64 // Jobs written to spool directory.
	Failed  uint64
	Bytes   uint64
}

// Dispatcher delivers jobs from a queue on its own goroutine, so the bus
// loop never waits on the network.
type Dispatcher struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	target Target
	spool  string
	queue  chan *Job
	done   chan struct{}
	once   sync.Once
	closed atomic.Bool
	stats  Stats
	onDone func(job *Job, err error)
}

// Create dispatcher, depth is size of queue.
func New(target Target, spoolDir string, depth int) *Dispatcher {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Dispatcher{
		target: target,
		spool:  spoolDir,
		queue:  make(chan *Job, depth),
		done:   make(chan struct{}),
	}
}

// Called after each job is delivered or failed.
func (d *Dispatcher) OnDone(fn func(job *Job, err error)) {
	d.mu.Lock()
	d.onDone = fn
	d.mu.Unlock()
}

// Start worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.worker()
}

// Queue job for delivery, never blocks.
func (d *Dispatcher) Submit(job *Job) error {
	if d.closed.Load() {
		return ErrStopped
	}
	select {
	case d.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Change network target, takes effect on the next job.
func (d *Dispatcher) SetTarget(t Target) {
	if t.Chunk <= 0 {
		t.Chunk = DefaultChunk
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}
	d.mu.Lock()
	d.target = t
	d.mu.Unlock()
	slog.Info("Print server set", "target", t.String())
}

func (d *Dispatcher) Target() Target {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.target
}

// Change spool directory, empty disables spooling.
func (d *Dispatcher) SetSpool(dir string) {
	d.mu.Lock()
	d.spool = dir
	d.mu.Unlock()
}

func (d *Dispatcher) Spool() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spool
}

// Jobs waiting for delivery.
func (d *Dispatcher) Queued() int {
	return len(d.queue)
}

// No room for another job.
func (d *Dispatcher) Full() bool {
	return len(d.queue) == cap(d.queue)
}

// Stop was called.
func (d *Dispatcher) Stopped() bool {
	return d.closed.Load()
}

func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Stop worker, waits at most one second for the job in progress.
func (d *Dispatcher) Stop() {
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.done)
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("Timed out waiting for dispatcher to finish.")
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.done:
			if n := len(d.queue); n != 0 {
				slog.Warn("Jobs not delivered at shutdown", "count", n)
			}
			return
		case job := <-d.queue:
			err := d.deliver(job)
			d.mu.Lock()
			fn := d.onDone
			d.mu.Unlock()
			if fn != nil {
				fn(job, err)
			}
		}
	}
}

// Send job to print server, fall back to spool directory.
func (d *Dispatcher) deliver(job *Job) error {
	d.mu.Lock()
	target := d.target
	spool := d.spool
	d.mu.Unlock()

	var err error
	if target.Valid() {
		err = send(job, func() (Sink, error) { return dialTCP(target) })
		if err == nil {
			d.count(job, &d.stats.Sent)
			slog.Info("Job sent", "id", job.ID, "bytes", len(job.Data), "target", target.String())
			return nil
		}
		slog.Error("Job send failed", "id", job.ID, "target", target.String(), "error", err)
	}
	if spool != "" {
		err = send(job, func() (Sink, error) { return createFile(spool, job) })
		if err == nil {
			d.count(job, &d.stats.Spooled)
			slog.Info("Job spooled", "id", job.ID, "bytes", len(job.Data), "dir", spool)
			return nil
		}
		slog.Error("Job spool failed", "id", job.ID, "dir", spool, "error", err)
	}
	if err == nil {
		err = ErrNoTarget
		slog.Warn("Job dropped, nowhere to send", "id", job.ID, "bytes", len(job.Data))
	}
	d.mu.Lock()
	d.stats.Failed++
	d.mu.Unlock()
	return err
}

func (d *Dispatcher) count(job *Job, ctr *uint64) {
	d.mu.Lock()
	*ctr++
	d.stats.Bytes += uint64(len(job.Data))
	d.mu.Unlock()
}

// Push whole job through a sink.
func send(job *Job, open func() (Sink, error)) error {
	sink, err := open()
	if err != nil {
		return err
	}
	err = sink.Push(job.Data)
	if err != nil {
		_ = sink.Close()
		return err
	}
	return sink.Close()
}
