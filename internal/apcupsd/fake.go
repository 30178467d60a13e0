package apcupsd

import (
	"bytes"
	"io"
	"net"
	"strings"
	"sync"
)

// FakeServer is an in-process apcupsd NIS stand-in for tests.
//
// Every "status" request is answered with one frame per line of Status
// followed by a zero-length frame. Set Raw to send bytes verbatim instead,
// and HangUp to close the connection after each reply.
type FakeServer struct {
	Status string
	Raw    []byte
	HangUp bool

	ln       net.Listener
	mu       sync.Mutex
	requests []string
	conns    int
	open     []net.Conn
	wg       sync.WaitGroup
}

// Start listens on a loopback port and returns it.
func (f *FakeServer) Start() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	f.ln = ln
	f.wg.Add(1)
	go f.accept()
	return ln.Addr().(*net.TCPAddr).Port, nil
}

// Close stops the listener, drops open connections and waits for handlers.
func (f *FakeServer) Close() error {
	if f.ln == nil {
		return nil
	}
	err := f.ln.Close()
	f.mu.Lock()
	for _, c := range f.open {
		c.Close() //nolint:errcheck
	}
	f.mu.Unlock()
	f.wg.Wait()
	return err
}

// Requests returns the decoded request payloads received so far.
func (f *FakeServer) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// Conns returns how many connections have been accepted.
func (f *FakeServer) Conns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conns
}

func (f *FakeServer) accept() {
	defer f.wg.Done()
	for {
		c, err := f.ln.Accept()
		if err != nil {
			return
		}
		f.mu.Lock()
		f.conns++
		f.open = append(f.open, c)
		f.mu.Unlock()
		f.wg.Add(1)
		go f.serve(c)
	}
}

func (f *FakeServer) serve(c net.Conn) {
	defer f.wg.Done()
	defer c.Close() //nolint:errcheck
	for {
		req, err := ReadFrame(c)
		if err != nil {
			return
		}
		f.mu.Lock()
		f.requests = append(f.requests, string(req))
		f.mu.Unlock()

		if err := f.reply(c, string(req)); err != nil {
			return
		}
		if f.HangUp {
			return
		}
	}
}

func (f *FakeServer) reply(c net.Conn, req string) error {
	if f.Raw != nil {
		_, err := c.Write(f.Raw)
		return err
	}
	if req != statusCommand {
		return WriteFrame(c, nil)
	}
	return writeReport(c, f.Status)
}

// EncodeReport renders a status text as the frame sequence apcupsd sends.
func EncodeReport(status string) []byte {
	var b bytes.Buffer
	writeReport(&b, status) //nolint:errcheck
	return b.Bytes()
}

func writeReport(w io.Writer, status string) error {
	for _, line := range strings.SplitAfter(status, "\n") {
		if line == "" {
			continue
		}
		if err := WriteFrame(w, []byte(line)); err != nil {
			return err
		}
	}
	return WriteFrame(w, nil)
}
