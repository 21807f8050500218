// Command loadtest drives the search API with concurrent queries for one
// tenant and prints a latency report. With -seed it first uploads synthetic
// documents through the ingestion API.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	SearchURL   string
	IngestURL   string
	Tenant      string
	APIKey      string
	Concurrency int
	Duration    time.Duration
	Seed        int
	Queries     []string
}

var vocabulary = []string{
	"apple", "banana", "cherry", "invoice", "receipt", "shipment",
	"warehouse", "customer", "payment", "refund", "delivery", "order",
}

func main() {
	searchURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	ingestURL := flag.String("ingest-url", "http://localhost:8081", "base URL of the ingestion service")
	tenant := flag.String("tenant", "loadtest", "tenant to query")
	apiKey := flag.String("api-key", "", "value for the Authorization header")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	seed := flag.Int("seed", 0, "upload this many synthetic documents before querying")
	flag.Parse()

	cfg := Config{
		SearchURL:   *searchURL,
		IngestURL:   *ingestURL,
		Tenant:      *tenant,
		APIKey:      *apiKey,
		Concurrency: *concurrency,
		Duration:    *duration,
		Seed:        *seed,
		// exact, prefix and misspelled forms of the seeded words
		Queries: []string{"apple", "invoice receipt", "ship", "custom", "aple", "paymnt", "order refund", "zzz"},
	}

	fmt.Println("=== Tenant Search Load Test ===")
	fmt.Printf("Target:      %s (tenant %s)\n", cfg.SearchURL, cfg.Tenant)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Println()

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if cfg.Seed > 0 {
		if err := seedDocuments(context.Background(), client, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d documents\n\n", cfg.Seed)
	}

	start := time.Now()
	stats := runLoadTest(client, cfg)
	stats.Report(os.Stdout, time.Since(start))
	if stats.total.Load() == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func seedDocuments(ctx context.Context, client *http.Client, cfg Config) error {
	target := fmt.Sprintf("%s/api/v1/documents?tenant=%s", cfg.IngestURL, url.QueryEscape(cfg.Tenant))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for i := range cfg.Seed {
		g.Go(func() error {
			body, err := json.Marshal(map[string]string{
				"id":   fmt.Sprintf("doc-%06d", i),
				"text": syntheticText(i),
			})
			if err != nil {
				return err
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			if cfg.APIKey != "" {
				req.Header.Set("Authorization", cfg.APIKey)
			}
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			io.Copy(io.Discard, resp.Body)
			if resp.StatusCode != http.StatusAccepted {
				return fmt.Errorf("document %d: unexpected status %d", i, resp.StatusCode)
			}
			return nil
		})
	}
	return g.Wait()
}

func syntheticText(i int) string {
	var b bytes.Buffer
	for j := range 8 {
		if j > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(vocabulary[(i*7+j*3)%len(vocabulary)])
	}
	return b.String()
}

func runLoadTest(client *http.Client, cfg Config) *Stats {
	stats := NewStats()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var g errgroup.Group
	fmt.Print("Running")
	for w := range cfg.Concurrency {
		g.Go(func() error {
			for n := w; ctx.Err() == nil; n++ {
				query := cfg.Queries[n%len(cfg.Queries)]
				searchOnce(ctx, client, cfg, query, stats)
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	g.Wait()
	close(done)
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func searchOnce(ctx context.Context, client *http.Client, cfg Config, query string, stats *Stats) {
	searchURL := fmt.Sprintf("%s/api/v1/search?tenant=%s&q=%s&limit=10",
		cfg.SearchURL, url.QueryEscape(cfg.Tenant), url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		stats.Record(0, 0, 0, err)
		return
	}
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", cfg.APIKey)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			stats.Record(elapsed, 0, 0, err)
		}
		return
	}
	defer resp.Body.Close()

	var body struct {
		Results []string `json:"results"`
	}
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			if ctx.Err() == nil {
				stats.Record(elapsed, 0, 0, err)
			}
			return
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	stats.Record(elapsed, resp.StatusCode, len(body.Results), nil)
}
