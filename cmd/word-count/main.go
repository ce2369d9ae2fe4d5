package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"GoJigsaw/internal/engine/impl/jigsaw/statistic"
	"GoJigsaw/pkg/corpus"
)

const (
	bucketNum    = 1024
	leftPartBits = 104
	cellNumH     = 8
	cellNumL     = 8
	topN         = 10
)

func main() {
	actual := flag.Bool("a", false, "calculate actual counts alongside the sketch")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: word-count [-a] <input_file>")
		os.Exit(1)
	}
	inputFile := flag.Arg(0)

	codec := statistic.NewCompactStringCodec(bucketNum)
	sketch := statistic.NewSketch[statistic.CompactStringKey](codec, bucketNum, leftPartBits, cellNumH, cellNumL)
	log.Printf("Sketch memory: %d bytes", statistic.MemoryUsage(bucketNum, leftPartBits, cellNumH, cellNumL))

	var actualCounts map[string]uint64
	if *actual {
		actualCounts = make(map[string]uint64)
	}

	reader, err := corpus.NewReader(inputFile)
	if err != nil {
		log.Fatalf("Failed to open input file: %v", err)
	}
	defer reader.Close()

	wordChannel := make(chan string, 1024)
	done := make(chan struct{})

	totalWords := 0
	start := time.Now()

	go func() {
		defer close(done)
		for word := range wordChannel {
			key := statistic.NewCompactStringKey(word)
			sketch.Insert(key)
			if actualCounts != nil {
				actualCounts[key.String()]++
			}
			totalWords++
		}
	}()

	if err := reader.ReadWords(wordChannel); err != nil {
		log.Fatalf("Failed to read corpus: %v", err)
	}
	close(wordChannel)
	<-done

	elapsed := time.Since(start)
	log.Printf("Processed %d words in %s (%.0f words/second)",
		totalWords, elapsed, float64(totalWords)/elapsed.Seconds())

	printTopWords(sketch, actualCounts)
}

func printTopWords(sketch *statistic.Sketch[statistic.CompactStringKey], actualCounts map[string]uint64) {
	flows := sketch.HeavyFlows()

	fmt.Printf("Top %d most frequent words:\n", topN)
	if actualCounts != nil {
		fmt.Printf("%-20s %15s %15s\n", "Word", "Sketch", "Actual")
	} else {
		fmt.Printf("%-20s %15s\n", "Word", "Count")
	}

	for i, flow := range flows {
		if i >= topN {
			break
		}
		word := flow.Key.String()
		if actualCounts != nil {
			fmt.Printf("%-20s %15d %15d\n", word, flow.Count, actualCounts[word])
		} else {
			fmt.Printf("%-20s %15d\n", word, flow.Count)
		}
	}
}
