package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

var apiEndpoint = defaultEndpoint() // Defaults to localhost, can be overridden via IFS_API_URL or --endpoint flag

func main() {
	args := os.Args[1:]
	var err error
	apiEndpoint = defaultEndpoint()
	args, err = applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage())
		os.Exit(1)
	}

	var code int
	switch args[0] {
	case "score":
		code = runScoreCommand(args[1:], os.Stdout, os.Stderr)
	case "submit":
		code = runSubmitCommand(args[1:], os.Stdout, os.Stderr)
	case "history":
		code = runHistoryCommand(args[1:], os.Stdout, os.Stderr)
	case "report":
		code = runReportCommand(args[1:], os.Stdout, os.Stderr)
	case "evaluate":
		code = runEvaluateCommand(args[1:], os.Stdout, os.Stderr)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage())
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		fmt.Fprint(os.Stderr, usage())
		code = 1
	}
	os.Exit(code)
}

func usage() string {
	buf := &bytes.Buffer{}
	fmt.Fprintln(buf, "Usage: ifs-cli [--endpoint URL] <command> [options]")
	fmt.Fprintln(buf, "Commands:")
	fmt.Fprintln(buf, "  score      Compute a composite score locally from three sub-scores")
	fmt.Fprintln(buf, "  submit     Submit a daily self-report to the server")
	fmt.Fprintln(buf, "  history    Fetch stored records for an owner")
	fmt.Fprintln(buf, "  report     Fetch the trigger report for an owner")
	fmt.Fprintln(buf, "  evaluate   Evaluate a history file locally against a trigger policy")
	return buf.String()
}

func defaultEndpoint() string {
	if v := strings.TrimSpace(os.Getenv("IFS_API_URL")); v != "" {
		return v
	}
	return "http://localhost:8080"
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--endpoint" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value for --endpoint")
			}
			apiEndpoint = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--endpoint=") {
			apiEndpoint = strings.TrimPrefix(arg, "--endpoint=")
			continue
		}
		out = append(out, arg)
	}
	return out, nil
}

func printJSON(stdout io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, string(encoded))
	return nil
}
