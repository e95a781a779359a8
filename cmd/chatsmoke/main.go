// chatsmoke posts one message to a running server and plays back the
// SSE answer stream on stdout. Useful for poking a deployment without
// the widget:
//
//	go run ./cmd/chatsmoke -base http://localhost:5000 -slug support -m "hello"
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	base := flag.String("base", "http://localhost:5000", "server base URL")
	slug := flag.String("slug", "", "chatbot slug")
	message := flag.String("m", "", "message to send")
	session := flag.String("session", "", "existing session id (optional)")
	flag.Parse()

	if *slug == "" || strings.TrimSpace(*message) == "" {
		fatalf("usage: chatsmoke -slug <slug> -m <message> [-session <id>] [-base <url>]")
	}

	client := &http.Client{Timeout: 2 * time.Minute}

	body, _ := json.Marshal(map[string]any{
		"message":   *message,
		"sessionId": *session,
		"stream":    true,
	})
	resp, err := client.Post(*base+"/api/chat/"+*slug, "application/json", bytes.NewReader(body))
	if err != nil {
		fatalf("submit: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		fatalf("submit: status %d", resp.StatusCode)
	}
	var submitted struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		fatalf("submit: %v", err)
	}
	fmt.Printf("session: %s\n", submitted.SessionID)

	stream, err := client.Get(*base + "/api/chat/" + *slug + "/stream?sessionId=" + submitted.SessionID)
	if err != nil {
		fatalf("stream: %v", err)
	}
	defer stream.Body.Close()
	if stream.StatusCode != http.StatusOK {
		fatalf("stream: status %d", stream.StatusCode)
	}

	sc := bufio.NewScanner(stream.Body)
	event := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data := strings.TrimPrefix(line, "data: ")
			switch event {
			case "chunk":
				var p struct {
					Content string `json:"content"`
				}
				_ = json.Unmarshal([]byte(data), &p)
				fmt.Print(p.Content)
			case "restart":
				fmt.Print("\r\033[K") // discard the line so far
			case "complete":
				fmt.Println()
				return
			case "error":
				fmt.Println()
				fatalf("server error: %s", data)
			}
		}
	}
	if err := sc.Err(); err != nil {
		fatalf("stream read: %v", err)
	}
}
