package main

import (
	"flag"
	"io"
	"log"
	"net"
	"strings"
	"time"
)

// probe connects to an unresponsive server, optionally talks to it,
// and reports how long the reply took. Useful for eyeballing client
// timeout behavior without writing a client.
func main() {
	addr := flag.String("addr", "127.0.0.1:9000", "Server address")
	sendHTTP := flag.Bool("http", false, "Send a canned GET request")
	payload := flag.String("send", "", "Raw payload to send after connecting")
	chunked := flag.Bool("chunked", false, "Split the payload into delayed fragments")
	timeout := flag.Duration("timeout", 30*time.Second, "Give up after this long")
	flag.Parse()

	body := *payload
	if *sendHTTP {
		body = "GET / HTTP/1.1\r\nHost: " + *addr + "\r\n\r\n"
	}

	start := time.Now()
	conn, err := net.DialTimeout("tcp", *addr, *timeout)
	if err != nil {
		log.Fatalf("dial %s: %v", *addr, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(*timeout))
	log.Printf("Connected to %s in %v", *addr, time.Since(start))

	if body != "" {
		if *chunked {
			err = sendChunked(conn, body)
		} else {
			_, err = conn.Write([]byte(body))
		}
		if err != nil {
			log.Fatalf("send: %v", err)
		}
		log.Printf("Sent %d bytes", len(body))
	}

	first := make([]byte, 1)
	if _, err := io.ReadFull(conn, first); err != nil {
		log.Fatalf("waiting for reply: %v", err)
	}
	ttfb := time.Since(start)

	rest, err := io.ReadAll(conn)
	if err != nil {
		log.Fatalf("reading reply: %v", err)
	}
	reply := string(first) + string(rest)

	log.Printf("First byte after %v", ttfb)
	log.Printf("Connection closed after %v", time.Since(start))
	log.Printf("Reply (%d bytes):\n%s", len(reply), reply)
	if strings.HasPrefix(reply, "HTTP/") {
		log.Printf("Server classified us as HTTP")
	}
}

// sendChunked writes body a few bytes at a time with pauses between
// fragments, exercising the server's cross-read accumulation.
func sendChunked(conn net.Conn, body string) error {
	const chunk = 4
	for i := 0; i < len(body); i += chunk {
		end := i + chunk
		if end > len(body) {
			end = len(body)
		}
		if _, err := conn.Write([]byte(body[i:end])); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}
