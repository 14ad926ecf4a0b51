package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// RepoInfo is the summary of a repository's metadata.
type RepoInfo struct {
	Repo            string    `json:"repo"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	HTMLURL         string    `json:"html_url"`
	Description     *string   `json:"description"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Attachment is a release asset. It is encoded as a [filename, download_url] pair.
type Attachment struct {
	Name        string
	DownloadURL string
}

func (a Attachment) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{a.Name, a.DownloadURL})
}

func (a *Attachment) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("attachment: expected 2 elements, got %d", len(pair))
	}
	a.Name, a.DownloadURL = pair[0], pair[1]
	return nil
}

// Release is one entry of a repository's release list, in upstream order.
type Release struct {
	TagName     string       `json:"tag_name"`
	Name        *string      `json:"name"`
	Changelog   *string      `json:"changelog"`
	PublishedAt time.Time    `json:"published_at"`
	Attachments []Attachment `json:"attachments"`
}

// LatestRelease summarizes the release upstream reports as latest.
type LatestRelease struct {
	Repo          string       `json:"repo"`
	LatestVersion string       `json:"latest_version"`
	Changelog     *string      `json:"changelog"`
	PublishedAt   time.Time    `json:"published_at"`
	Attachments   []Attachment `json:"attachments"`
}

// ItemOutcome is the result of resolving one repository of a batch.
// Releases is omitted only when it was not fetched; a repository without
// releases carries an empty list.
type ItemOutcome struct {
	Repo          string         `json:"repo"`
	Success       bool           `json:"success"`
	Error         string         `json:"error,omitempty"`
	RepoInfo      *RepoInfo      `json:"repo_info,omitempty"`
	Releases      []Release      `json:"releases,omitzero"`
	LatestRelease *LatestRelease `json:"latest_release,omitempty"`
}

type BatchRequest struct {
	Repos  []string `json:"repos"`
	Fields []string `json:"fields,omitempty"`
}

type BatchResponse struct {
	Results []ItemOutcome `json:"results"`
}

type BatchResponseMap struct {
	ResultsMap map[string]ItemOutcome `json:"results_map"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}
