// Command probe posts an image file to a running Mirror Match server and
// prints the analysis it gets back.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"mirror-match-backend/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

func main() {
	var (
		server  string
		image   string
		target  string
		timeout time.Duration
	)
	flag.StringVar(&server, "server", "http://localhost:8080", "server base URL")
	flag.StringVar(&image, "image", "", "path to a JPEG/PNG/WebP file")
	flag.StringVar(&target, "target", "", "target emotion; uses /api/match when set")
	flag.DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")
	flag.Parse()

	if image == "" {
		flag.Usage()
		os.Exit(2)
	}

	data, err := os.ReadFile(image)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}
	uri, err := dataURI(data)
	if err != nil {
		log.Fatalf("encode image: %v", err)
	}

	path, body := requestFor(target, uri)
	payload, _ := json.Marshal(body)

	client := &http.Client{Timeout: timeout}
	start := time.Now()
	resp, err := client.Post(strings.TrimRight(server, "/")+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("POST %s -> %d (%s, %d image bytes)\n", path, resp.StatusCode, time.Since(start).Round(time.Millisecond), len(data))

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
	} else {
		fmt.Println(pretty.String())
	}

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

// dataURI encodes data the way the browser's canvas.toDataURL does.
func dataURI(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("file is %s, not an image", mtype.String())
	}
	return "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func requestFor(target, uri string) (string, interface{}) {
	if target != "" {
		return "/api/match", model.MatchRequest{Target: target, Image: uri}
	}
	return "/analyze-emotion", model.AnalyzeRequest{Image: uri}
}
