package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/examapp/qbank/api"
	"github.com/examapp/qbank/config"
	"github.com/examapp/qbank/db"
	"github.com/examapp/qbank/export"
	"github.com/examapp/qbank/fetch"
	"github.com/examapp/qbank/models"
	"github.com/examapp/qbank/parser"
	"github.com/examapp/qbank/utils"
)

var version = "0.1.0"

var cfg *config.Config

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	cfg = config.Load()

	rootCmd := &cobra.Command{
		Use:   "qbank",
		Short: "Quiz question bank builder",
		Long: `qbank extracts quiz questions (judgment, single-choice, multiple-choice)
from exam-site HTML exports, plain paragraph documents, and remote quiz
APIs, normalizes them into uniform records, and serializes them to JSON,
SQL, or CSV or imports them into a sqlite question bank.`,
		Version: version,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(parseTextCmd())
	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCSVCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseCmd() *cobra.Command {
	var jsonOut, sqlOut, categoryBig, categorySmall string
	cmd := &cobra.Command{
		Use:   "parse <input-dir-or-file>",
		Short: "Extract questions from exam-site HTML exports",
		Long: `Extract questions from HTML files containing question-item markup.

Example:
  qbank parse data/ --json questions.json
  qbank parse data/ --sql insert-questions.sql --category-small 基础编程`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			info, err := os.Stat(input)
			if err != nil {
				return fmt.Errorf("stat %s: %w", input, err)
			}

			var set *models.QuestionSet
			if info.IsDir() {
				set, err = parser.ParseHTMLDir(input)
			} else {
				set, err = parseOneHTMLFile(input)
			}
			if err != nil {
				return err
			}

			printCounts(set)
			return writeOutputs(set, input, jsonOut, sqlOut, categoryBig, categorySmall)
		},
	}
	cmd.Flags().StringVar(&jsonOut, "json", "", "write extracted questions as JSON to this path")
	cmd.Flags().StringVar(&sqlOut, "sql", "", "write INSERT statements to this path")
	cmd.Flags().StringVar(&categoryBig, "category-big", cfg.CategoryBig, "category_big for SQL output")
	cmd.Flags().StringVar(&categorySmall, "category-small", cfg.CategorySmall, "category_small for SQL output")
	return cmd
}

func parseOneHTMLFile(path string) (*models.QuestionSet, error) {
	p := parser.NewHTMLParser()
	if err := p.ParseFile(path); err != nil {
		return nil, err
	}
	return p.Result(), nil
}

func parseTextCmd() *cobra.Command {
	var jsonOut, sqlOut, categoryBig, categorySmall string
	cmd := &cobra.Command{
		Use:   "parse-text <document>",
		Short: "Extract questions from a paragraph-style document",
		Long: `Extract questions from a document using the line grammar: section
headers (一、判断题 / 二、单选题 / 三、多选题), numbered question lines,
A.-D. option lines, and 答案: answer lines.

A .htm/.html input is treated as an exam-page export and its content
paragraphs become the units; anything else is read line by line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			var set *models.QuestionSet
			var err error
			switch strings.ToLower(filepath.Ext(input)) {
			case ".htm", ".html":
				set, err = parser.ParseParagraphHTMLFile(input)
			default:
				set, err = parser.ParseTextFile(input)
			}
			if err != nil {
				return err
			}

			printCounts(set)
			return writeOutputs(set, input, jsonOut, sqlOut, categoryBig, categorySmall)
		},
	}
	cmd.Flags().StringVar(&jsonOut, "json", "", "write extracted questions as JSON to this path")
	cmd.Flags().StringVar(&sqlOut, "sql", "", "write INSERT statements to this path")
	cmd.Flags().StringVar(&categoryBig, "category-big", cfg.CategoryBig, "category_big for SQL output")
	cmd.Flags().StringVar(&categorySmall, "category-small", cfg.CategorySmall, "category_small for SQL output")
	return cmd
}

func fetchCmd() *cobra.Command {
	var baseURL, manifest, jsonOut, sqlOut, categoryBig, categorySmall string
	var startID, endID int
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch questions from a remote quiz API",
		Long: `Fetch quizzes by id range from a remote quiz API and normalize them
into question records.

Example:
  qbank fetch --base-url https://example.com --start 1 --end 20 --sql out.sql
  qbank fetch --manifest sources.yaml --json out.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if manifest != "" {
				return fetchFromManifest(manifest, jsonOut, sqlOut)
			}
			if baseURL == "" || startID <= 0 || endID < startID {
				return fmt.Errorf("either --manifest or --base-url with a valid --start/--end range is required")
			}

			client := fetch.NewClient(baseURL)
			client.Delay = time.Duration(cfg.FetchDelayMS) * time.Millisecond
			set, failures := client.FetchRange(startID, endID)
			for _, f := range failures {
				utils.LogFetch("%s", f)
			}

			printCounts(set)
			source := fmt.Sprintf("%s quiz %d..%d", baseURL, startID, endID)
			return writeOutputs(set, source, jsonOut, sqlOut, categoryBig, categorySmall)
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "quiz API base URL")
	cmd.Flags().IntVar(&startID, "start", 0, "first quiz id")
	cmd.Flags().IntVar(&endID, "end", 0, "last quiz id")
	cmd.Flags().StringVar(&manifest, "manifest", "", "YAML manifest of fetch sources")
	cmd.Flags().StringVar(&jsonOut, "json", "", "write fetched questions as JSON to this path")
	cmd.Flags().StringVar(&sqlOut, "sql", "", "write INSERT statements to this path")
	cmd.Flags().StringVar(&categoryBig, "category-big", cfg.CategoryBig, "category_big for SQL output")
	cmd.Flags().StringVar(&categorySmall, "category-small", cfg.CategorySmall, "category_small for SQL output")
	return cmd
}

func fetchFromManifest(manifestPath, jsonOut, sqlOut string) error {
	sources, err := config.LoadSources(manifestPath)
	if err != nil {
		return err
	}

	// Categories for the combined output come from the first source that
	// declares them; the environment defaults cover the rest.
	categoryBig, categorySmall := cfg.CategoryBig, cfg.CategorySmall
	if len(sources) > 0 {
		if sources[0].CategoryBig != "" {
			categoryBig = sources[0].CategoryBig
		}
		if sources[0].CategorySmall != "" {
			categorySmall = sources[0].CategorySmall
		}
	}

	merged := models.NewQuestionSet()
	nextID := 0
	for _, src := range sources {
		utils.LogFetch("Source %s: %s quiz %d..%d", src.Name, src.BaseURL, src.StartID, src.EndID)
		client := fetch.NewClient(src.BaseURL)
		client.Delay = time.Duration(cfg.FetchDelayMS) * time.Millisecond
		set, failures := client.FetchRange(src.StartID, src.EndID)
		for _, f := range failures {
			utils.LogFetch("%s: %s", src.Name, f)
		}
		for _, r := range set.All() {
			nextID++
			r.ID = nextID
			merged.Add(r)
		}
	}

	printCounts(merged)
	return writeOutputs(merged, manifestPath, jsonOut, sqlOut, categoryBig, categorySmall)
}

func importCmd() *cobra.Command {
	var dbPath, source, categoryBig, categorySmall string
	cmd := &cobra.Command{
		Use:   "import <questions.json>",
		Short: "Import extracted questions into the sqlite question bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := export.ReadJSON(args[0])
			if err != nil {
				return err
			}

			database, err := db.InitDB(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			if source == "" {
				source = args[0]
			}
			result, err := database.ImportQuestions(set, source, categoryBig, categorySmall)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "sqlite database path")
	cmd.Flags().StringVar(&source, "source", "", "source label recorded with the batch")
	cmd.Flags().StringVar(&categoryBig, "category-big", cfg.CategoryBig, "category_big for stored rows")
	cmd.Flags().StringVar(&categorySmall, "category-small", cfg.CategorySmall, "category_small for stored rows")
	return cmd
}

func exportCSVCmd() *cobra.Command {
	var dbPath, out string
	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Export the question bank as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.InitDB(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			questions, err := database.GetAllQuestions()
			if err != nil {
				return err
			}
			return export.WriteCSV(questions, out)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "sqlite database path")
	cmd.Flags().StringVar(&out, "out", "questions.csv", "output CSV path")
	return cmd
}

func statsCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show question bank statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := db.InitDB(dbPath)
			if err != nil {
				return err
			}
			defer database.Close()

			counts, err := database.CountByType()
			if err != nil {
				return err
			}

			types := make([]string, 0, len(counts))
			total := 0
			for t, n := range counts {
				types = append(types, t)
				total += n
			}
			sort.Strings(types)
			for _, t := range types {
				fmt.Printf("%-16s %d\n", t, counts[t])
			}
			fmt.Printf("%-16s %d\n", "total", total)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "sqlite database path")
	return cmd
}

func serveCmd() *cobra.Command {
	var dbPath, port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question bank over a read-only JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			utils.LogStartup("qbank API starting...")

			database, err := db.InitDB(dbPath)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-c
				utils.LogShutdown("Received shutdown signal, closing database...")
				if err := database.Close(); err != nil {
					utils.LogError("Error closing database: %v", err)
				} else {
					utils.LogShutdown("Database connection closed successfully")
				}
				os.Exit(0)
			}()

			server := &http.Server{
				Addr:         ":" + port,
				Handler:      api.NewRouter(database),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			utils.LogStartup("Server ready at http://localhost:%s", port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", cfg.DBPath, "sqlite database path")
	cmd.Flags().StringVar(&port, "port", cfg.Port, "listen port")
	return cmd
}

func printCounts(set *models.QuestionSet) {
	counts := set.Counts()
	fmt.Printf("judgment: %d\n", counts[models.TypeJudgment])
	fmt.Printf("single_choice: %d\n", counts[models.TypeSingleChoice])
	fmt.Printf("multiple_choice: %d\n", counts[models.TypeMultipleChoice])
	fmt.Printf("total: %d\n", set.Total())
}

func writeOutputs(set *models.QuestionSet, source, jsonOut, sqlOut, categoryBig, categorySmall string) error {
	if jsonOut == "" && sqlOut == "" {
		utils.LogInfo("No --json or --sql output requested, nothing written")
		return nil
	}
	if jsonOut != "" {
		if err := export.WriteJSON(set, jsonOut); err != nil {
			return err
		}
	}
	if sqlOut != "" {
		if err := export.WriteSQL(set, sqlOut, source, categoryBig, categorySmall); err != nil {
			return err
		}
	}
	return nil
}
