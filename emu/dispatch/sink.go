/*
 * IECPrint - Print job sinks.
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
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Stream to print server in fixed size chunks.
type tcpSink struct {
	conn    net.Conn
	buf     []byte
	chunk   int
	timeout time.Duration
}

func dialTCP(t Target) (*tcpSink, error) {
	if t.Chunk <= 0 {
		t.Chunk = DefaultChunk
	}
	if t.Timeout <= 0 {
		t.Timeout = DefaultTimeout
	}
	conn, err := net.DialTimeout("tcp", t.Address(), t.Timeout)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", t.Address(), err)
	}
	return &tcpSink{
		conn:    conn,
		buf:     make([]byte, 0, t.Chunk),
		chunk:   t.Chunk,
		timeout: t.Timeout,
	}, nil
}

func (s *tcpSink) Push(data []byte) error {
	for len(data) > 0 {
		n := min(s.chunk-len(s.buf), len(data))
		s.buf = append(s.buf, data[:n]...)
		data = data[n:]
		if len(s.buf) == s.chunk {
			if err := s.Flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *tcpSink) Flush() error {
	if len(s.buf) == 0 {
		return nil
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.timeout))
	_, err := s.conn.Write(s.buf)
	s.buf = s.buf[:0]
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

func (s *tcpSink) Close() error {
	err := s.Flush()
	return errors.Join(err, s.conn.Close())
}

// One file per job in spool directory.
type fileSink struct {
	file *os.File
	w    *bufio.Writer
}

// File name used for job in spool directory.
func FileName(job *Job) string {
	return "job-" + job.ID.String() + ".prn"
}

func createFile(dir string, job *Job) (*fileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("spool directory: %w", err)
	}
	file, err := os.Create(filepath.Join(dir, FileName(job)))
	if err != nil {
		return nil, fmt.Errorf("spool file: %w", err)
	}
	return &fileSink{file: file, w: bufio.NewWriter(file)}, nil
}

func (s *fileSink) Push(data []byte) error {
	_, err := s.w.Write(data)
	return err
}

func (s *fileSink) Flush() error {
	return s.w.Flush()
}

func (s *fileSink) Close() error {
	err := s.Flush()
	return errors.Join(err, s.file.Close())
}
