package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var apiClient = &http.Client{Timeout: 15 * time.Second}

func runSubmitCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("submit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		owner          string
		date           string
		fortitude      int
		accountability int
		integrity      int
		note           string
		idempotencyKey string
	)
	fs.StringVar(&owner, "owner", "", "owner identifier")
	fs.StringVar(&date, "date", "", "report date (YYYY-MM-DD), defaults to today")
	fs.IntVar(&fortitude, "fortitude", 0, "internal fortitude sub-score (0-100)")
	fs.IntVar(&accountability, "accountability", 0, "external accountability sub-score (0-100)")
	fs.IntVar(&integrity, "integrity", 0, "high-stakes integrity sub-score (0-100)")
	fs.StringVar(&note, "note", "", "optional free-form note")
	fs.StringVar(&idempotencyKey, "idempotency-key", "", "optional Idempotency-Key header value")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(owner) == "" {
		fmt.Fprintln(stderr, "Error: --owner is required")
		return 1
	}
	provided := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { provided[f.Name] = true })
	if !provided["fortitude"] || !provided["accountability"] || !provided["integrity"] {
		fmt.Fprintln(stderr, "Error: --fortitude, --accountability and --integrity are required")
		return 1
	}

	payload := map[string]any{
		"subScores": map[string]int{
			"internalFortitude":      fortitude,
			"externalAccountability": accountability,
			"highStakesIntegrity":    integrity,
		},
	}
	if strings.TrimSpace(date) != "" {
		payload["date"] = strings.TrimSpace(date)
	}
	if strings.TrimSpace(note) != "" {
		payload["note"] = note
	}

	var response json.RawMessage
	path := fmt.Sprintf("/api/v1/owners/%s/scores", url.PathEscape(owner))
	if err := postJSON(path, payload, idempotencyKey, &response); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := printJSON(stdout, response); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runHistoryCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		owner string
		from  string
		to    string
	)
	fs.StringVar(&owner, "owner", "", "owner identifier")
	fs.StringVar(&from, "from", "", "optional lower bound day (YYYY-MM-DD)")
	fs.StringVar(&to, "to", "", "optional upper bound day (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(owner) == "" {
		fmt.Fprintln(stderr, "Error: --owner is required")
		return 1
	}

	query := url.Values{}
	if strings.TrimSpace(from) != "" {
		query.Set("from", strings.TrimSpace(from))
	}
	if strings.TrimSpace(to) != "" {
		query.Set("to", strings.TrimSpace(to))
	}
	path := fmt.Sprintf("/api/v1/owners/%s/scores", url.PathEscape(owner))
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var response json.RawMessage
	if err := getJSON(path, &response); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := printJSON(stdout, response); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runReportCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		owner string
		date  string
	)
	fs.StringVar(&owner, "owner", "", "owner identifier")
	fs.StringVar(&date, "date", "", "evaluation date (YYYY-MM-DD), defaults to today")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(owner) == "" {
		fmt.Fprintln(stderr, "Error: --owner is required")
		return 1
	}

	path := fmt.Sprintf("/api/v1/owners/%s/report", url.PathEscape(owner))
	if strings.TrimSpace(date) != "" {
		path += "?date=" + url.QueryEscape(strings.TrimSpace(date))
	}

	var response json.RawMessage
	if err := getJSON(path, &response); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := printJSON(stdout, response); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func getJSON(path string, out any) error {
	resp, err := apiClient.Get(apiURL(path))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func postJSON(path string, payload any, idempotencyKey string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, apiURL(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(idempotencyKey) != "" {
		req.Header.Set("Idempotency-Key", strings.TrimSpace(idempotencyKey))
	}
	resp, err := apiClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %s: %s", resp.Status, apiErr.Error)
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func apiURL(path string) string {
	return strings.TrimRight(apiEndpoint, "/") + path
}
