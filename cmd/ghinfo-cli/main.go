package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ghinfo/ghinfo/internal/core/models"
)

const defaultServer = "http://localhost:8080"

var httpClient = &http.Client{Timeout: 2 * time.Minute}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "info":
		cmdInfo(args)
	case "releases":
		cmdReleases(args)
	case "latest":
		cmdLatest(args)
	case "batch":
		cmdBatch(args)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ghinfo CLI

Usage:
  ghinfo info <owner/repo> [options]
  ghinfo releases <owner/repo> [options]
  ghinfo latest <owner/repo> [options]
  ghinfo batch <owner/repo>... [options]

Options:
  --server <url>       Server URL (default: http://localhost:8080)
  --fields <list>      Comma-separated fields for batch: repo_info,releases,latest_release
  --form <seq|map>     Batch response form (default: seq)`)
}

// parseFlags extracts --key value pairs from args.
func parseFlags(args []string) (positional []string, flags map[string]string) {
	flags = make(map[string]string)
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "--") && i+1 < len(args) {
			flags[strings.TrimPrefix(args[i], "--")] = args[i+1]
			i++
		} else {
			positional = append(positional, args[i])
		}
	}
	return
}

func getFlag(flags map[string]string, key, def string) string {
	if v, ok := flags[key]; ok {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func requireRepo(pos []string, usage string) (string, string) {
	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
	owner, name, ok := strings.Cut(pos[0], "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		fmt.Fprintf(os.Stderr, "error: expected owner/repo, got %q\n", pos[0])
		os.Exit(1)
	}
	return owner, name
}

func cmdInfo(args []string) {
	pos, flags := parseFlags(args)
	owner, name := requireRepo(pos, "usage: ghinfo info <owner/repo> [--server URL]")
	server := getFlag(flags, "server", defaultServer)

	var info models.RepoInfo
	getJSON(repoURL(server, owner, name, ""), &info)

	fmt.Printf("%s\n", info.FullName)
	if info.Description != nil {
		fmt.Printf("  %s\n", *info.Description)
	}
	fmt.Printf("  URL:     %s\n", info.HTMLURL)
	fmt.Printf("  Stars:   %d\n", info.StargazersCount)
	fmt.Printf("  Forks:   %d\n", info.ForksCount)
	fmt.Printf("  Updated: %s\n", info.UpdatedAt.Format(time.RFC3339))
}

func cmdReleases(args []string) {
	pos, flags := parseFlags(args)
	owner, name := requireRepo(pos, "usage: ghinfo releases <owner/repo> [--server URL]")
	server := getFlag(flags, "server", defaultServer)

	var releases []models.Release
	getJSON(repoURL(server, owner, name, "releases"), &releases)

	if len(releases) == 0 {
		fmt.Printf("No releases for %s/%s.\n", owner, name)
		return
	}

	fmt.Printf("Releases of %s/%s:\n", owner, name)
	for _, r := range releases {
		fmt.Printf("  - %-20s %s  (%d attachments)\n", r.TagName, r.PublishedAt.Format("2006-01-02"), len(r.Attachments))
	}
}

func cmdLatest(args []string) {
	pos, flags := parseFlags(args)
	owner, name := requireRepo(pos, "usage: ghinfo latest <owner/repo> [--server URL]")
	server := getFlag(flags, "server", defaultServer)

	var latest models.LatestRelease
	getJSON(repoURL(server, owner, name, "releases/latest"), &latest)

	fmt.Printf("%s %s\n", latest.Repo, latest.LatestVersion)
	fmt.Printf("  Published: %s\n", latest.PublishedAt.Format(time.RFC3339))
	for _, a := range latest.Attachments {
		fmt.Printf("  - %s\n    %s\n", a.Name, a.DownloadURL)
	}
}

func cmdBatch(args []string) {
	pos, flags := parseFlags(args)
	if len(pos) < 1 {
		fmt.Fprintln(os.Stderr, "usage: ghinfo batch <owner/repo>... [--server URL] [--fields LIST] [--form seq|map]")
		os.Exit(1)
	}
	server := getFlag(flags, "server", defaultServer)
	form := getFlag(flags, "form", "seq")
	if form != "seq" && form != "map" {
		fmt.Fprintf(os.Stderr, "error: --form must be seq or map, got %q\n", form)
		os.Exit(1)
	}

	body, err := json.Marshal(models.BatchRequest{
		Repos:  pos,
		Fields: splitList(getFlag(flags, "fields", "")),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error encoding request: %v\n", err)
		os.Exit(1)
	}

	start := time.Now()
	resp, err := httpClient.Post(batchURL(server, form == "map"), "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(os.Stderr, formatHTTPError(resp))
		os.Exit(1)
	}

	var out bytes.Buffer
	raw, err := io.ReadAll(resp.Body)
	if err == nil {
		err = json.Indent(&out, raw, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.String())
	fmt.Fprintf(os.Stderr, "%d repositories in %v\n", len(pos), time.Since(start).Round(time.Millisecond))
}

func getJSON(u string, v interface{}) {
	resp, err := httpClient.Get(u)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintln(os.Stderr, formatHTTPError(resp))
		os.Exit(1)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error decoding response: %v\n", err)
		os.Exit(1)
	}
}

func repoURL(server, owner, name, sub string) string {
	u := fmt.Sprintf("%s/repos/%s/%s", strings.TrimRight(server, "/"), url.PathEscape(owner), url.PathEscape(name))
	if sub != "" {
		u += "/" + sub
	}
	return u
}

func batchURL(server string, mapped bool) string {
	u := strings.TrimRight(server, "/") + "/repos/batch"
	if mapped {
		u += "/map"
	}
	return u
}

func formatHTTPError(resp *http.Response) string {
	body, _ := io.ReadAll(resp.Body)
	if len(body) == 0 {
		return fmt.Sprintf("error (%d): %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return fmt.Sprintf("error (%d): %s", resp.StatusCode, payload.Message)
	}
	return fmt.Sprintf("error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}
