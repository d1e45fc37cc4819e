package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/maltedev/digikala-search/internal/app"
	"github.com/maltedev/digikala-search/internal/config"
	"github.com/maltedev/digikala-search/internal/models"
	"github.com/maltedev/digikala-search/pkg/logger"
)

func main() {
	var (
		query        = flag.String("q", "", "Shopping query in Persian or English")
		productQuery = flag.String("product-query", "", "Search this exact term and skip query expansion")
		limit        = flag.Int("limit", 10, "Maximum number of products to return")
		outputFile   = flag.String("output", "", "Output CSV file (optional)")
		headless     = flag.Bool("headless", true, "Run browser in headless mode")
	)
	flag.Parse()

	if strings.TrimSpace(*query) == "" && strings.TrimSpace(*productQuery) == "" {
		fmt.Println("Please provide a query with -q")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Browser.Headless = *headless && cfg.Browser.Headless

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("Starting Digikala product search", "query", *query)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	pipeline, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to build search pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	result := pipeline.Search.Run(ctx, models.Query{Text: *query, Override: *productQuery}, *limit)

	fmt.Printf("Searched for: %s\n", strings.Join(result.SearchedFor(), " | "))
	printProducts(os.Stdout, result.Products)
	logger.Info("Total products found", "count", len(result.Products), "request_id", result.RequestID)

	if *outputFile != "" {
		if err := saveToCSV(result.Products, *outputFile); err != nil {
			logger.Error("Failed to save CSV", "error", err)
		} else {
			logger.Info("Results saved to CSV", "file", *outputFile)
		}
	}
}

func printProducts(w io.Writer, products []models.Product) {
	for i, p := range products {
		fmt.Fprintf(w, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(w, "   Price: %s\n", p.Price)
		fmt.Fprintf(w, "   Rating: %s\n", p.Rating)
		fmt.Fprintf(w, "   Brand: %s\n", p.Brand)
		fmt.Fprintf(w, "   URL: %s\n", p.URL)
		fmt.Fprintf(w, "   Score: %.1f (%s)\n", p.RelevanceScore, p.SourceStrategy)
		fmt.Fprintln(w, "---")
	}
}

func saveToCSV(products []models.Product, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return writeCSV(file, products)
}

func writeCSV(w io.Writer, products []models.Product) error {
	writer := csv.NewWriter(w)

	if err := writer.Write([]string{"Name", "Price", "Rating", "Brand", "URL", "ImageURL", "Strategy", "Score"}); err != nil {
		return err
	}

	for _, p := range products {
		record := []string{
			p.Name,
			p.Price,
			p.Rating,
			p.Brand,
			p.URL,
			p.ImageURL,
			string(p.SourceStrategy),
			fmt.Sprintf("%.1f", p.RelevanceScore),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
