package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/daybook"
)

func main() {
	count := flag.Int("count", 1000, "Number of entries to generate")
	adapter := flag.String("adapter", "fs", "Storage adapter (fs, sqlite)")
	keep := flag.Bool("keep", false, "Keep the benchmark journal after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "daybook_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := context.Background()
	start, _ := daybook.ParseDate("2000-01-01")

	fmt.Printf("Generating %d entries in %s (%s)...\n", *count, benchDir, *adapter)
	startGen := time.Now()
	if *adapter == "fs" {
		// Direct writes simulate a journal that already exists on disk.
		for i := 0; i < *count; i++ {
			d := start.AddDays(i)
			content := fmt.Sprintf("Entry %d\nwritten for %s\nthird line\nfourth line", i, d)
			if err := os.WriteFile(filepath.Join(benchDir, d.String()+".txt"), []byte(content), 0644); err != nil {
				panic(err)
			}
		}
	} else {
		j := open(benchDir, *adapter, logger)
		for i := 0; i < *count; i++ {
			d := start.AddDays(i)
			if _, err := j.SaveEntry(ctx, d, fmt.Sprintf("Entry %d\nwritten for %s", i, d)); err != nil {
				panic(err)
			}
		}
		closeJournal(j)
	}
	fmt.Printf("Generation took: %v\n", time.Since(startGen))

	// Cold: a fresh journal, as a new CLI invocation would see it.
	j := open(benchDir, *adapter, logger)
	startList := time.Now()
	dates, err := j.ListDatesDescending(ctx)
	if err != nil {
		panic(err)
	}
	cold := time.Since(startList)

	startList = time.Now()
	if _, err := j.ListDatesDescending(ctx); err != nil {
		panic(err)
	}
	warm := time.Since(startList)

	startPreviews := time.Now()
	previews, err := j.Previews(ctx, dates)
	if err != nil {
		panic(err)
	}
	previewTime := time.Since(startPreviews)
	closeJournal(j)

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d entries, %s):\n", len(dates), *adapter)
	fmt.Printf("  List (cold): %v\n", cold)
	fmt.Printf("  List (warm): %v\n", warm)
	fmt.Printf("  Previews:    %v (%d)\n", previewTime, len(previews))
	fmt.Printf("--------------------------------------------------\n")
}

func open(dir, adapter string, logger *slog.Logger) *daybook.Journal {
	j, err := daybook.Open(dir,
		daybook.WithAdapter(adapter),
		daybook.WithLogger(logger),
		daybook.WithDevSafety(false),
	)
	if err != nil {
		panic(err)
	}
	return j
}

func closeJournal(j *daybook.Journal) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := j.Close(ctx); err != nil {
		panic(err)
	}
}
