package nut

import (
	"bufio"
	"net"
	"strings"
	"sync"
)

// FakeServer is an in-process upsd stand-in for tests.
//
// Replies maps a request line (without the newline) to the raw text written
// back; requests with no entry get "ERR UNKNOWN-COMMAND". Set HangUp to
// close the connection after every reply, simulating a daemon that dies
// mid-conversation.
type FakeServer struct {
	Replies map[string]string
	HangUp  bool

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

// Close stops the listener and waits for connection handlers to exit.
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

// SetReply sets the reply for request while the server is running.
func (f *FakeServer) SetReply(request, reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Replies == nil {
		f.Replies = make(map[string]string)
	}
	f.Replies[request] = reply
}

// Requests returns every request line received so far, in order.
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
	r := bufio.NewReader(c)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		f.mu.Lock()
		f.requests = append(f.requests, line)
		reply, ok := f.Replies[line]
		f.mu.Unlock()
		if !ok {
			reply = "ERR UNKNOWN-COMMAND\n"
		}
		if _, err := c.Write([]byte(reply)); err != nil {
			return
		}
		if f.HangUp {
			return
		}
	}
}

// ListReply formats a LIST VAR response for instance in upsd's wire format.
func ListReply(instance string, vars []Variable) string {
	var b strings.Builder
	b.WriteString("BEGIN LIST VAR " + instance + "\n")
	for _, v := range vars {
		b.WriteString("VAR " + instance + " " + v.Name + " " + `"` + escapeValue(v.Value) + `"` + "\n")
	}
	b.WriteString("END LIST VAR " + instance + "\n")
	return b.String()
}

func escapeValue(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
