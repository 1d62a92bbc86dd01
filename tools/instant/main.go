package main

import (
	"context"
	"io"
	"log"
	"net"
	"os"
	"time"

	"unresponsive/core/sniff"
)

// instant is the zero-delay twin of the unresponsive server: same
// sniffing, same canned responses, no hold. Point a client at both to
// separate "server is slow" handling from "server said 503" handling.

const (
	response503 = "HTTP/1.1 503 Service Unavailable\r\nContent-Type: text/plain\r\nContent-Length: 0\r\n\r\n"
	greeting    = "Hello, world!\r\n"

	// readWindow bounds how long handle waits for the client's first
	// burst before classifying whatever arrived.
	readWindow = 200 * time.Millisecond
)

func main() {
	addr := ":9001"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	if err := run(addr, context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(addr string, ctx context.Context) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer l.Close()
	log.Printf("Instant responder listening on %s", l.Addr())

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Println("Accept error:", err)
				continue
			}
		}
		go handle(conn)
	}
}

func handle(c net.Conn) {
	defer c.Close()
	log.Printf("Accepted %s", c.RemoteAddr())

	var s sniff.Sniffer
	buf := make([]byte, 0, 4096)

	// Collect the client's opening burst, stopping early the moment
	// it classifies as HTTP.
	c.SetReadDeadline(time.Now().Add(readWindow))
	for len(buf) < cap(buf) {
		n, err := c.Read(buf[len(buf):cap(buf)])
		if n > 0 {
			buf = buf[:len(buf)+n]
			if s.Sniff(buf) {
				break
			}
		}
		if err != nil {
			break
		}
	}
	c.SetReadDeadline(time.Time{})

	var err error
	if s.HTTP() {
		log.Printf("%s: %s", c.RemoteAddr(), sniff.RequestLine(buf))
		_, err = io.WriteString(c, response503)
	} else {
		_, err = io.WriteString(c, greeting)
	}
	if err != nil {
		log.Printf("Write to %s failed: %v", c.RemoteAddr(), err)
		return
	}
	log.Printf("Answered %s instantly", c.RemoteAddr())
}
