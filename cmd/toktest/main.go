// toktest compares the token streams of source files against golden dumps
// stored next to them (or in --dir).
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/dump"
	"github.com/xplshn/gtok/pkg/lexer"
	"github.com/xplshn/gtok/pkg/token"
)

const (
	StatusPass  = "PASS"
	StatusFail  = "FAIL"
	StatusSkip  = "SKIP"
	StatusError = "ERROR"
)

type FileTestResult struct {
	File     string        `json:"file"`
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Diff     string        `json:"diff,omitempty"`
	Duration time.Duration `json:"duration"`
	Tokens   int           `json:"tokens"`
}

type TestSuiteResults map[string]*FileTestResult

var (
	generateGolden = flag.String("generate-golden", "", "Generate golden token dumps for the given source files (space-separated).")
	testFiles      = flag.String("test-files", "tests/*.src", "Glob pattern(s) for files to test (space-separated).")
	skipFiles      = flag.String("skip-files", "", "Files to skip (space-separated).")
	outputJSON     = flag.String("output", ".toktest_results.json", "Output file for the JSON test report.")
	jobs           = flag.Int("j", 4, "Number of parallel test jobs.")
	verbose        = flag.Bool("v", false, "Enable verbose logging.")
	jsonDir        = flag.String("dir", "", "Directory to store/read golden JSON files (defaults to source file dir).")
	std            = flag.String("std", config.StdFixed, "Lexing standard (compat, fixed).")
	specialsFile   = flag.String("specials", "", "YAML special-token table (defaults to the built-in table).")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled.\n", cYellow, cNone)
		os.Exit(1)
	}()

	specials := config.DefaultSpecials
	if *specialsFile != "" {
		var err error
		if specials, err = config.LoadSpecials(*specialsFile); err != nil {
			log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
		}
	}
	if err := config.NewConfig().ApplyStd(*std); err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}

	if *generateGolden != "" {
		for _, file := range strings.Fields(*generateGolden) {
			path, err := writeGolden(file, *jsonDir, specials, *std)
			if err != nil {
				log.Fatalf("%s[ERROR]%s Could not generate golden file for %s: %v\n", cRed, cNone, file, err)
			}
			log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
		}
		return
	}

	files, err := expandGlobPatterns(*testFiles)
	if err != nil {
		log.Fatalf("%s[ERROR]%s Invalid glob pattern(s): %v\n", cRed, cNone, err)
	}
	if len(files) == 0 {
		log.Println("No test files found matching the pattern(s).")
		return
	}

	results := runSuite(files, strings.Fields(*skipFiles), *jobs, *jsonDir, specials, *std)
	printSummary(results)
	resultsMap := writeJSONReport(results)
	if hasFailures(resultsMap) {
		os.Exit(1)
	}
}

func getJSONPath(sourceFile, dir string) string {
	jsonFileName := "." + filepath.Base(sourceFile) + ".tokens.json"
	if dir != "" {
		return filepath.Join(dir, jsonFileName)
	}
	return filepath.Join(filepath.Dir(sourceFile), jsonFileName)
}

func hashFile(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// lexFile tokenizes path with a lexer of its own. A stream that ends on a
// scan failure keeps the failing Null token as its last record.
func lexFile(path string, specials []string, std string) (*dump.File, error) {
	cfg := config.NewConfig()
	if err := cfg.ApplyStd(std); err != nil {
		return nil, err
	}
	l, err := lexer.New(specials, cfg)
	if err != nil {
		return nil, err
	}
	if err := l.Load(path); err != nil {
		return nil, err
	}
	defer l.Close()

	var toks []token.Token
	for {
		tok := l.Next()
		// A single skip pass can stop on whitespace after a comment; the
		// lookahead has already read past it.
		if tok.Fault == token.FaultNoMatch && l.Peek().Fault != token.FaultNoMatch {
			continue
		}
		if tok.IsNull() {
			if tok.Fault != token.FaultEOF {
				toks = append(toks, tok)
			}
			break
		}
		toks = append(toks, tok)
	}
	return dump.NewFile(filepath.Base(path), l.Source().Sum64(), std, toks), nil
}

func writeGolden(sourceFile, dir string, specials []string, std string) (string, error) {
	f, err := lexFile(sourceFile, specials, std)
	if err != nil {
		return "", err
	}
	goldenFile := getJSONPath(sourceFile, dir)
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	out, err := os.Create(goldenFile)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if err := f.Write(out, dump.FormatJSON); err != nil {
		return "", err
	}
	return goldenFile, out.Close()
}

func runSuite(files, skip []string, workers int, dir string, specials []string, std string) []*FileTestResult {
	skipList := make(map[string]bool)
	for _, f := range skip {
		skipList[f] = true
		if abs, err := filepath.Abs(f); err == nil {
			skipList[abs] = true
		}
	}
	if workers < 1 {
		workers = 1
	}

	tasks := make(chan string, len(files))
	resultsChan := make(chan *FileTestResult, len(files))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range tasks {
				resultsChan <- testFile(file, dir, specials, std)
			}
		}()
	}

	// Feed the tasks channel, skipping files with identical content
	seenHashes := make(map[uint64]string)
	for _, file := range files {
		if skipList[file] {
			resultsChan <- &FileTestResult{File: file, Status: StatusSkip, Message: "Explicitly skipped"}
			continue
		}
		fileHash, err := hashFile(file)
		if err != nil {
			resultsChan <- &FileTestResult{File: file, Status: StatusError, Message: fmt.Sprintf("Failed to read file for hashing: %v", err)}
			continue
		}
		if originalFile, seen := seenHashes[fileHash]; seen {
			resultsChan <- &FileTestResult{File: file, Status: StatusSkip, Message: fmt.Sprintf("Content is identical to %s", originalFile)}
			continue
		}
		seenHashes[fileHash] = file
		tasks <- file
	}
	close(tasks)

	wg.Wait()
	close(resultsChan)

	var allResults []*FileTestResult
	for result := range resultsChan {
		allResults = append(allResults, result)
	}
	sort.Slice(allResults, func(i, j int) bool {
		return allResults[i].File < allResults[j].File
	})
	return allResults
}

func testFile(file, dir string, specials []string, std string) *FileTestResult {
	goldenFile := getJSONPath(file, dir)
	goldenData, err := os.Open(goldenFile)
	if errors.Is(err, os.ErrNotExist) {
		return &FileTestResult{File: file, Status: StatusSkip, Message: "Cannot test without a corresponding .tokens.json golden file"}
	}
	if err != nil {
		return &FileTestResult{File: file, Status: StatusError, Message: fmt.Sprintf("Could not read golden file %s: %v", goldenFile, err)}
	}
	defer goldenData.Close()
	golden, err := dump.ReadJSON(goldenData)
	if err != nil {
		return &FileTestResult{File: file, Status: StatusError, Message: fmt.Sprintf("Could not parse golden file %s: %v", goldenFile, err)}
	}

	start := time.Now()
	actual, err := lexFile(file, specials, std)
	duration := time.Since(start)
	if err != nil {
		return &FileTestResult{File: file, Status: StatusError, Message: err.Error(), Duration: duration}
	}
	return compareTokens(file, golden, actual, duration)
}

func compareTokens(file string, golden, actual *dump.File, duration time.Duration) *FileTestResult {
	result := &FileTestResult{File: file, Duration: duration, Tokens: len(actual.Tokens)}

	if golden.Std != "" && golden.Std != actual.Std {
		result.Status = StatusSkip
		result.Message = fmt.Sprintf("Golden file was generated with --std=%s", golden.Std)
		return result
	}
	if golden.Hash != actual.Hash {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("Golden file is stale (source hash %s, golden %s); regenerate it with --generate-golden", actual.Hash, golden.Hash)
		return result
	}
	if diff := cmp.Diff(golden.Tokens, actual.Tokens); diff != "" {
		result.Status = StatusFail
		result.Message = "Token stream mismatch"
		result.Diff = diff
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%d tokens match", len(actual.Tokens))
	return result
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dµs", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func printSummary(results []*FileTestResult) {
	var passed, failed, skipped, errored int
	var total time.Duration

	for _, result := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, result.File, cNone)

		switch result.Status {
		case StatusPass:
			passed++
			fmt.Printf("  [%sPASS%s] %s\n", cGreen, cNone, result.Message)
			if *verbose {
				fmt.Printf("  [%s]\n", formatDuration(result.Duration))
			}
		case StatusFail:
			failed++
			fmt.Printf("  [%sFAIL%s] %s\n", cRed, cNone, result.Message)
			fmt.Println(formatDiff(result.Diff))
		case StatusSkip:
			skipped++
			fmt.Printf("  [%sSKIP%s] %s\n", cYellow, cNone, result.Message)
		case StatusError:
			errored++
			fmt.Printf("  [%sERROR%s] %s\n", cRed, cNone, result.Message)
		}
		total += result.Duration
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone, len(results))
	if *verbose {
		fmt.Printf("Lexing took %s in total.\n", strings.TrimSpace(formatDuration(total)))
	}
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var builder strings.Builder
	builder.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmedLine := strings.TrimSpace(line)
		if strings.HasPrefix(trimmedLine, "-") {
			builder.WriteString(cRed)
		} else if strings.HasPrefix(trimmedLine, "+") {
			builder.WriteString(cGreen)
		}
		builder.WriteString("    " + line)
		builder.WriteString(cNone)
		builder.WriteString("\n")
	}
	return builder.String()
}

func writeJSONReport(results []*FileTestResult) TestSuiteResults {
	resultsMap := make(TestSuiteResults, len(results))
	for _, r := range results {
		resultsMap[r.File] = r
	}

	jsonData, err := json.MarshalIndent(resultsMap, "", "  ")
	if err != nil {
		log.Printf("%s[ERROR]%s Failed to marshal results to JSON: %v\n", cRed, cNone, err)
		return resultsMap
	}

	outputFile := *outputJSON
	if *jsonDir != "" {
		if err := os.MkdirAll(*jsonDir, 0755); err != nil {
			log.Printf("%s[ERROR]%s Failed to create dir %s: %v\n", cRed, cNone, *jsonDir, err)
		}
		outputFile = filepath.Join(*jsonDir, *outputJSON)
	}

	if err := os.WriteFile(outputFile, jsonData, 0644); err != nil {
		log.Printf("%s[ERROR]%s Failed to write JSON report to %s: %v\n", cRed, cNone, outputFile, err)
	} else {
		fmt.Printf("Full test report saved to %s\n", outputFile)
	}
	return resultsMap
}

func hasFailures(results TestSuiteResults) bool {
	for _, result := range results {
		if result.Status == StatusFail || result.Status == StatusError {
			return true
		}
	}
	return false
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, file := range files {
			absFile, err := filepath.Abs(file)
			if err != nil {
				continue
			}
			if !seen[absFile] {
				if info, err := os.Stat(absFile); err == nil && info.Mode().IsRegular() {
					allFiles = append(allFiles, absFile)
					seen[absFile] = true
				}
			}
		}
	}
	return allFiles, nil
}
