/*
 * IECPrint - Log debug data to a file
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

/*
   Debug output is produced from the bus handler, which can not wait on a
   disk. Messages are queued and written by a separate goroutine, when the
   queue is full the message is counted and dropped.
*/

package debug

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
)

// Number of messages that can be waiting.
const queueSize = 1024

var ErrOpen = errors.New("debug file already open")

type sink struct {
	out   io.WriteCloser
	queue chan string
	wg    sync.WaitGroup
}

var (
	current atomic.Pointer[sink]
	dropped atomic.Uint64
)

// Start writing debug messages to w.
func Start(w io.WriteCloser) error {
	s := &sink{out: w, queue: make(chan string, queueSize)}
	if !current.CompareAndSwap(nil, s) {
		return ErrOpen
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for msg := range s.queue {
			_, _ = io.WriteString(s.out, msg)
		}
	}()
	return nil
}

// Create debug file.
func Open(fileName string) error {
	if current.Load() != nil {
		return fmt.Errorf("%w: can't open %s", ErrOpen, fileName)
	}
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %w", err)
	}
	if err = Start(file); err != nil {
		file.Close()
		return err
	}
	return nil
}

// Flush pending messages and close debug file.
func Close() {
	s := current.Swap(nil)
	if s == nil {
		return
	}
	close(s.queue)
	s.wg.Wait()
	s.out.Close()
}

// Number of messages lost because the queue was full.
func Dropped() uint64 {
	return dropped.Load()
}

func post(msg string) {
	s := current.Load()
	if s == nil {
		return
	}
	defer func() {
		// Close raced with us.
		if recover() != nil {
			dropped.Add(1)
		}
	}()
	select {
	case s.queue <- msg:
	default:
		dropped.Add(1)
	}
}

// Generic debug message.
func Debugf(module string, mask int, level int, format string, a ...any) {
	if (mask & level) != 0 {
		post(fmt.Sprintf(module+": "+format+"\n", a...))
	}
}

// Device debug message.
func DebugDevf(devNum uint8, mask int, level int, format string, a ...any) {
	if (mask & level) != 0 {
		dev := strconv.FormatUint(uint64(devNum), 10)
		post(fmt.Sprintf("Device "+dev+": "+format+"\n", a...))
	}
}
