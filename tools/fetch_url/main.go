// Fetch_url is a webwright plug-in that returns a web page as markdown via
// the r.jina.ai reader.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	readerPrefix = "https://r.jina.ai/"
	maxBody      = 2 << 20
)

type output struct {
	Success bool   `json:"success"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func main() {
	var in struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(os.Stdin).Decode(&in); err != nil {
		emit(output{Error: err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	content, err := fetch(ctx, http.DefaultClient, readerPrefix, in.URL)
	if err != nil {
		emit(output{Error: err.Error()})
		return
	}
	emit(output{Success: true, Content: content})
}

func emit(o output) { _ = json.NewEncoder(os.Stdout).Encode(o) }

// normalise adds https:// to bare host names.
func normalise(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}

func fetch(ctx context.Context, client *http.Client, prefix, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", fmt.Errorf("url is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, prefix+normalise(url), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP error: %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
