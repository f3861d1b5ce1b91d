// Command fetch queries a running dataserver from the terminal, mirroring
// what the app server sends. Intended for development.
//
// Usage:
//
//	go run ./cmd/fetch -kind forecast -lat 42.33 -lng -83.05 -test
//	go run ./cmd/fetch -kind almanac -park 123
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load()

	base := flag.String("server", envOr("DATASERVER_URL", "http://localhost:8080"), "dataserver base URL")
	kind := flag.String("kind", "forecast", "request kind: forecast or almanac")
	lat := flag.String("lat", "", "latitude")
	lng := flag.String("lng", "", "longitude")
	parkID := flag.String("park", "", "park id")
	test := flag.Bool("test", false, "use the pinned fixture dataset date")
	username := flag.String("username", envOr("DATASERVER_USERNAME", "admin"), "API username")
	token := flag.String("token", os.Getenv("DATASERVER_TOKEN"), "API token")
	flag.Parse()

	var path string
	switch *kind {
	case "forecast", "f":
		path = "/api/transparency-forecast/"
	case "almanac", "a":
		path = "/api/almanac/"
	default:
		return fmt.Errorf("invalid kind %q, expected forecast or almanac", *kind)
	}

	params := url.Values{}
	if *lat != "" {
		params.Set("lat", *lat)
	}
	if *lng != "" {
		params.Set("lng", *lng)
	}
	if *parkID != "" {
		params.Set("park_id", *parkID)
	}
	if *test {
		params.Set("test", "1")
	}

	target := strings.TrimRight(*base, "/") + path + "?" + params.Encode()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Username", *username)
	req.Header.Set("Token", *token)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n%s\n", resp.Proto, resp.Status, body)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
