package fetcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// miniFTPServer speaks just enough FTP for anonymous passive-mode RETR.
type miniFTPServer struct {
	listener net.Listener
	files    map[string]string
	wg       sync.WaitGroup
}

func newMiniFTPServer(t *testing.T, files map[string]string) *miniFTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &miniFTPServer{listener: ln, files: files}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.close)
	return s
}

func (s *miniFTPServer) addr() string {
	return s.listener.Addr().String()
}

func (s *miniFTPServer) close() {
	s.listener.Close() //nolint:errcheck
	s.wg.Wait()
}

func (s *miniFTPServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *miniFTPServer) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close() //nolint:errcheck
	conn.SetDeadline(time.Now().Add(10 * time.Second)) //nolint:errcheck

	w := bufio.NewWriter(conn)
	r := bufio.NewReader(conn)
	reply := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\r\n", args...) //nolint:errcheck
		w.Flush()                             //nolint:errcheck
	}

	reply("220 ready")

	var data net.Listener
	openData := func() bool {
		var err error
		data, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			reply("425 can't open data connection")
			return false
		}
		return true
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
		cmd := strings.ToUpper(parts[0])
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		switch cmd {
		case "USER", "PASS":
			reply("230 logged in")
		case "FEAT":
			fmt.Fprintf(w, "211-Features:\r\n UTF8\r\n") //nolint:errcheck
			reply("211 End")
		case "TYPE", "OPTS":
			reply("200 OK")
		case "EPSV":
			if openData() {
				reply("229 Entering Extended Passive Mode (|||%d|)", data.Addr().(*net.TCPAddr).Port)
			}
		case "PASV":
			if openData() {
				port := data.Addr().(*net.TCPAddr).Port
				reply("227 Entering Passive Mode (127,0,0,1,%d,%d)", port/256, port%256)
			}
		case "RETR":
			if data == nil {
				reply("425 use PASV first")
				continue
			}
			content, ok := s.files[arg]
			if !ok {
				reply("550 file not found")
				data.Close() //nolint:errcheck
				data = nil
				continue
			}
			reply("150 opening data connection")
			dc, err := data.Accept()
			if err != nil {
				reply("425 can't open data connection")
				continue
			}
			io.WriteString(dc, content) //nolint:errcheck
			dc.Close()                  //nolint:errcheck
			data.Close()                //nolint:errcheck
			data = nil
			reply("226 transfer complete")
		case "QUIT":
			reply("221 bye")
			return
		default:
			reply("502 not implemented")
		}
	}
}

func TestParseFTPURL(t *testing.T) {
	host, path, err := parseFTPURL("ftp://mirror.example.com/pub/speedcamera.csv")
	require.NoError(t, err)
	assert.Equal(t, "mirror.example.com:21", host)
	assert.Equal(t, "/pub/speedcamera.csv", path)

	host, _, err = parseFTPURL("ftp://mirror.example.com:2121/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "mirror.example.com:2121", host)

	_, _, err = parseFTPURL("http://mirror.example.com/a.csv")
	assert.Error(t, err)

	_, _, err = parseFTPURL("ftp://mirror.example.com")
	assert.Error(t, err)
}

func TestFTPFetch(t *testing.T) {
	srv := newMiniFTPServer(t, map[string]string{
		"/poi/redlightcamera.csv": "-118.24368,34.05223,\"Main St\"\n",
	})

	f := NewFTPFetcher(FTPOptions{})
	p, err := f.Fetch(context.Background(), Request{
		URL:     fmt.Sprintf("ftp://%s/poi/redlightcamera.csv", srv.addr()),
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "-118.24368,34.05223,\"Main St\"\n", string(p.Body))
}

func TestFTPFetch_NotFound(t *testing.T) {
	srv := newMiniFTPServer(t, map[string]string{"/exists.csv": "x"})

	_, err := NewFTPFetcher(FTPOptions{}).Fetch(context.Background(), Request{
		URL:     fmt.Sprintf("ftp://%s/missing.csv", srv.addr()),
		Timeout: 5 * time.Second,
	})
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, err.Error(), "ftp retrieve")
}

func TestFTPFetch_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close() //nolint:errcheck

	_, err = NewFTPFetcher(FTPOptions{}).Fetch(context.Background(), Request{
		URL:     "ftp://" + addr + "/a.csv",
		Timeout: 2 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ftp dial")
}

func TestFTPFetch_BodyLimit(t *testing.T) {
	srv := newMiniFTPServer(t, map[string]string{"/big.csv": strings.Repeat("1,2\n", 50)})

	_, err := NewFTPFetcher(FTPOptions{MaxBodyBytes: 16}).Fetch(context.Background(), Request{
		URL:     fmt.Sprintf("ftp://%s/big.csv", srv.addr()),
		Timeout: 5 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}
