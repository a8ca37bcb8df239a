package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tripwise/planner/internal/pdf"
	"github.com/tripwise/planner/internal/tripplan"
)

// render-plan rebuilds a saved plan's markdown (and optionally its PDF)
// without the service running. The input is either a bare report JSON or the
// stored plan envelope with a "report" field.
func main() {
	inputPath := flag.String("input", "", "Path to saved plan or report JSON")
	outputPath := flag.String("output", "", "Path to write markdown (defaults to stdout)")
	pdfPath := flag.String("pdf", "", "Optional path to write a rendered PDF")
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("missing required -input")
	}

	in, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("read input: %v", err)
	}

	report, err := decodeReport(in)
	if err != nil {
		log.Fatalf("decode input JSON: %v", err)
	}
	if err := tripplan.ValidateReport(report); err != nil {
		log.Fatalf("stored report is invalid: %v", err)
	}

	markdown := tripplan.BuildMarkdown(report)
	if err := writeMarkdown(*outputPath, markdown); err != nil {
		log.Fatalf("write markdown: %v", err)
	}

	if *pdfPath != "" {
		blob, err := pdf.NewChromiumRenderer().Render(context.Background(), markdown, report.Title)
		if err != nil {
			log.Fatalf("render pdf: %v", err)
		}
		if err := os.WriteFile(*pdfPath, blob, 0o644); err != nil {
			log.Fatalf("write pdf: %v", err)
		}
	}
}

func decodeReport(in []byte) (tripplan.Report, error) {
	var envelope struct {
		Report *tripplan.Report `json:"report"`
	}
	if err := json.Unmarshal(in, &envelope); err == nil && envelope.Report != nil {
		return *envelope.Report, nil
	}
	var report tripplan.Report
	if err := json.Unmarshal(in, &report); err != nil {
		return tripplan.Report{}, err
	}
	return report, nil
}

func writeMarkdown(outputPath, markdown string) error {
	if outputPath == "" {
		_, err := fmt.Print(markdown)
		return err
	}
	return os.WriteFile(outputPath, []byte(markdown), 0o644)
}
