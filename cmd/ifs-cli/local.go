package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"ifscore/config"
	"ifscore/score"
	"ifscore/triggers"
)

func runScoreCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("score", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		fortitude      int
		accountability int
		integrity      int
		clamp          bool
	)
	fs.IntVar(&fortitude, "fortitude", 0, "internal fortitude sub-score (0-100)")
	fs.IntVar(&accountability, "accountability", 0, "external accountability sub-score (0-100)")
	fs.IntVar(&integrity, "integrity", 0, "high-stakes integrity sub-score (0-100)")
	fs.BoolVar(&clamp, "clamp", false, "clamp out-of-range sub-scores instead of rejecting them")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	provided := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { provided[f.Name] = true })
	if !provided["fortitude"] || !provided["accountability"] || !provided["integrity"] {
		fmt.Fprintln(stderr, "Error: --fortitude, --accountability and --integrity are required")
		return 1
	}

	sub := score.SubScores{
		InternalFortitude:      fortitude,
		ExternalAccountability: accountability,
		HighStakesIntegrity:    integrity,
	}
	weights := score.DefaultWeights()

	var (
		composite int
		err       error
	)
	if clamp {
		composite, err = score.ComputeClamped(sub, weights)
	} else {
		composite, err = score.Compute(sub, weights)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	out := struct {
		SubScores score.SubScores `json:"subScores"`
		Composite int             `json:"compositeScore"`
	}{SubScores: sub, Composite: composite}
	if err := printJSON(stdout, out); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runEvaluateCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		file       string
		date       string
		policyPath string
	)
	fs.StringVar(&file, "file", "", "path to a JSON array of score records")
	fs.StringVar(&date, "date", "", "evaluation date (YYYY-MM-DD)")
	fs.StringVar(&policyPath, "policy", "", "optional trigger policy override file (YAML)")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if strings.TrimSpace(file) == "" {
		fmt.Fprintln(stderr, "Error: --file is required")
		return 1
	}
	if strings.TrimSpace(date) == "" {
		fmt.Fprintln(stderr, "Error: --date is required")
		return 1
	}

	day, err := score.ParseDay(date)
	if err != nil {
		fmt.Fprintf(stderr, "Error parsing --date: %v\n", err)
		return 1
	}

	raw, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading history file: %v\n", err)
		return 1
	}
	var records []score.Record
	if err := json.Unmarshal(raw, &records); err != nil {
		fmt.Fprintf(stderr, "Error parsing history file: %v\n", err)
		return 1
	}

	policy, err := config.LoadPolicy(policyPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading policy: %v\n", err)
		return 1
	}

	report := triggers.Evaluate(records, day, policy)
	if err := printJSON(stdout, report); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
