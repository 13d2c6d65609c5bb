package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/bootstrap"
	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/validation"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	experimentalFlag := flag.String("experimental", "", "Check path suggestions of tasks: true or enforce")
	maxScore := flag.Int("max-score", -1, "Exit with status 1 when the total score exceeds this value (-1 disables)")
	asJSON := flag.Bool("json", false, "Print the report as JSON")
	publish := flag.Bool("publish", false, "Store the dataset in the database when it passes")
	flag.Parse()

	experimental, err := validation.ParseExperimental(*experimentalFlag)
	if err != nil {
		log.Fatalf("Invalid -experimental: %v", err)
	}

	ctx := context.Background()
	res, err := bootstrap.Open(ctx, *configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer res.Close()
	logger := res.Logger

	if *publish && res.Store() == nil {
		logger.Fatal("-publish requires database.enabled")
	}

	repo, err := res.Repository()
	if err != nil {
		logger.Fatal("failed to open dataset", zap.Error(err))
	}
	snap, err := dataset.Load(ctx, repo)
	if err != nil {
		logger.Fatal("failed to load dataset", zap.Error(err))
	}
	in := validation.Input{
		Stations:   snap.Stations,
		Paths:      snap.Paths,
		Equipments: snap.Equipments,
	}
	doc, err := res.Tasks()
	if err != nil {
		logger.Fatal("failed to load tasks", zap.Error(err))
	}
	if doc != nil {
		in.Tasks = doc.Data
	}

	report, err := validation.New(logger).Validate(ctx, in, experimental)
	if err != nil {
		logger.Fatal("validation failed", zap.Error(err))
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "\t")
		if err := enc.Encode(struct {
			*validation.Report
			Total int `json:"total"`
		}{report, report.Total()}); err != nil {
			logger.Fatal("failed to write report", zap.Error(err))
		}
	} else {
		printSummary(report)
	}

	if *maxScore >= 0 && report.Total() > *maxScore {
		logger.Error("score above threshold", zap.Int("score", report.Total()), zap.Int("max", *maxScore))
		res.Close()
		os.Exit(1)
	}

	if *publish {
		if err := res.Store().SaveSnapshot(ctx, snap); err != nil {
			logger.Fatal("failed to publish dataset", zap.Error(err))
		}
		logger.Info("dataset published", zap.String("fingerprint", snap.Fingerprint))
	}
}

func printSummary(report *validation.Report) {
	totals := map[string]int{}
	counts := map[string]int{}
	for _, issue := range report.Issues {
		fmt.Printf("%6d  %-22s %s: %s\n", issue.Score, issue.Kind, issue.Subject, issue.Message)
		totals[issue.Kind] += issue.Score
		counts[issue.Kind]++
	}

	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	fmt.Println()
	for _, kind := range kinds {
		fmt.Printf("%-22s %5d issues %8d points\n", kind, counts[kind], totals[kind])
	}
	fmt.Printf("Total score: %d\n", report.Total())
}
