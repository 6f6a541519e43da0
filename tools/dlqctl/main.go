// dlqctl drives a service's dead-letter admin endpoints: list quarantined
// events, inspect one, replay one.
//
//	dlqctl -base-url http://localhost:8082 list
//	dlqctl -base-url http://localhost:8082 show <event_id>
//	dlqctl -base-url http://localhost:8082 replay <event_id>
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	var (
		baseURL = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "service base url")
		all     = flag.Bool("all", false, "include replayed entries when listing")
		limit   = flag.Int("limit", 50, "max entries to list")
		timeout = flag.Duration("timeout", 10*time.Second, "request timeout")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	base := strings.TrimRight(*baseURL, "/")

	switch flag.Arg(0) {
	case "list":
		url := fmt.Sprintf("%s/admin/dead-letters?limit=%d", base, *limit)
		if *all {
			url += "&all=true"
		}
		do(client, http.MethodGet, url)
	case "show":
		eventID := requireArg(1, "event_id")
		do(client, http.MethodGet, base+"/admin/dead-letters/"+eventID)
	case "replay":
		eventID := requireArg(1, "event_id")
		do(client, http.MethodPost, base+"/admin/dead-letters/"+eventID+"/replay")
	default:
		fatal("usage: dlqctl [-base-url URL] list|show|replay [event_id]")
	}
}

func do(client *http.Client, method, url string) {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		fatal(err.Error())
	}
	resp, err := client.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal(err.Error())
	}

	var pretty map[string]any
	if json.Unmarshal(body, &pretty) == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		body = append(out, '\n')
	}
	os.Stdout.Write(body)

	if resp.StatusCode >= 400 {
		fatal(fmt.Sprintf("status=%d", resp.StatusCode))
	}
}

func requireArg(n int, name string) string {
	v := flag.Arg(n)
	if v == "" {
		fatal(name + " is required")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
