package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aluiziolira/go-scrape-apps/models"
)

const separator = "--------------------------------------------------"

func printHarvestSummary(w io.Writer, result *models.HarvestResult, outputFile string, written int64) {
	duration := result.EndTime.Sub(result.StartTime)
	gamesPerSec := 0.0
	if duration.Seconds() > 0 {
		gamesPerSec = float64(result.GamesFetched) / duration.Seconds()
	}

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Harvest complete")
	fmt.Fprintf(w, "  Run ID:        %s\n", result.RunID)
	fmt.Fprintf(w, "  Chunks:        %d ok, %d failed\n", result.ChunksFetched, result.ChunksFailed)
	fmt.Fprintf(w, "  Games fetched: %d\n", result.GamesFetched)
	fmt.Fprintf(w, "  Unique games:  %d\n", result.UniqueGames)

	names := make([]string, 0, len(result.Collections))
	for name := range result.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s (last rank %d)\n", name+":", result.Collections[name], result.LastRank[name])
	}

	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Games/sec:     %.2f\n", gamesPerSec)
	fmt.Fprintf(w, "  Output file:   %s (%d records)\n", outputFile, written)
	fmt.Fprintln(w, separator)
}

func printVerifySummary(w io.Writer, result *models.VerifyResult, exclusiveFile, unverifiableFile string) {
	duration := result.EndTime.Sub(result.StartTime)

	fmt.Fprintln(w, "\n"+separator)
	fmt.Fprintln(w, "Verification complete")
	fmt.Fprintf(w, "  Run ID:        %s\n", result.RunID)
	fmt.Fprintf(w, "  Rows:          %d\n", result.TotalRows)
	fmt.Fprintf(w, "  Searches:      %d\n", result.Searches)
	fmt.Fprintf(w, "  Exclusive:     %d\n", result.Exclusive)
	fmt.Fprintf(w, "  Elsewhere:     %d\n", result.PresentElsewhere)
	fmt.Fprintf(w, "  Unverifiable:  %d\n", result.Unverifiable)
	fmt.Fprintf(w, "  Skipped (dev): %d (%d exclusive developers)\n", result.SkippedDeveloper, result.ExclusiveDevelopers)
	fmt.Fprintf(w, "  Invalid rows:  %d\n", result.InvalidRows)
	fmt.Fprintf(w, "  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Exclusive out: %s\n", exclusiveFile)
	fmt.Fprintf(w, "  Unverified:    %s\n", unverifiableFile)
	fmt.Fprintln(w, separator)
}
