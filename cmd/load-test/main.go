package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const replyPrefix = `<?xml version="1.0" encoding="UTF-8" ?><Response>`

// scenario is one batch of synthetic callbacks.
type scenario struct {
	name        string
	requests    int
	concurrency int
	numMedia    int
}

// sample is the outcome of a single callback.
type sample struct {
	latency time.Duration
	failure string
}

type report struct {
	scenario scenario
	elapsed  time.Duration
	samples  []sample
}

func (r report) failures() map[string]int {
	out := map[string]int{}
	for _, s := range r.samples {
		if s.failure != "" {
			out[s.failure]++
		}
	}
	return out
}

// percentile expects sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * p)
	return sorted[idx]
}

func (r report) print(w io.Writer) {
	latencies := make([]time.Duration, 0, len(r.samples))
	for _, s := range r.samples {
		latencies = append(latencies, s.latency)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	failed := r.failures()
	failedTotal := 0
	for _, n := range failed {
		failedTotal += n
	}

	fmt.Fprintf(w, "\n== %s: %d callbacks, concurrency %d, %d media each\n",
		r.scenario.name, r.scenario.requests, r.scenario.concurrency, r.scenario.numMedia)
	fmt.Fprintf(w, "accepted   %d\n", len(r.samples)-failedTotal)
	fmt.Fprintf(w, "failed     %d\n", failedTotal)
	fmt.Fprintf(w, "elapsed    %v (%.1f req/s)\n", r.elapsed, float64(len(r.samples))/r.elapsed.Seconds())
	fmt.Fprintf(w, "latency    p50 %v  p95 %v  p99 %v  max %v\n",
		percentile(latencies, 0.50), percentile(latencies, 0.95), percentile(latencies, 0.99), percentile(latencies, 1))
	for msg, n := range failed {
		fmt.Fprintf(w, "  %4d x %s\n", n, msg)
	}
}

// callbackForm mimics the provider's inbound message callback.
func callbackForm(run string, n, numMedia int, mediaBase string) url.Values {
	form := url.Values{
		"MessageSid": {fmt.Sprintf("SM%s%08d", run, n)},
		"AccountSid": {"ACloadtest"},
		"From":       {fmt.Sprintf("+1555%07d", n%10000000)},
		"To":         {"+15550001111"},
		"Body":       {"load test callback " + strconv.Itoa(n)},
		"NumMedia":   {strconv.Itoa(numMedia)},
	}
	for i := 0; i < numMedia; i++ {
		idx := strconv.Itoa(i)
		form.Set("MediaUrl"+idx, fmt.Sprintf("%s/media/load-%d-%d.png", mediaBase, n, i))
		form.Set("MediaContentType"+idx, "image/png")
	}
	return form
}

func post(ctx context.Context, client *http.Client, target string, form url.Values) sample {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
	if err != nil {
		return sample{failure: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return sample{latency: time.Since(start), failure: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	s := sample{latency: time.Since(start)}

	switch {
	case resp.StatusCode != http.StatusOK:
		s.failure = "HTTP " + strconv.Itoa(resp.StatusCode)
	case !strings.HasPrefix(string(body), replyPrefix):
		s.failure = "reply is not a TwiML document"
	}
	return s
}

func run(ctx context.Context, client *http.Client, target, mediaBase string, sc scenario) report {
	runID := strconv.FormatInt(time.Now().UnixNano()%1e6, 36)
	samples := make([]sample, sc.requests)
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < sc.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				samples[n] = post(ctx, client, target, callbackForm(runID, n, sc.numMedia, mediaBase))
			}
		}()
	}

	start := time.Now()
	for n := 0; n < sc.requests; n++ {
		jobs <- n
	}
	close(jobs)
	wg.Wait()

	return report{scenario: sc, elapsed: time.Since(start), samples: samples}
}

func main() {
	base := flag.String("base", "http://localhost:8081", "inbound webhook base URL")
	mediaBase := flag.String("media-base", "http://localhost:9090", "base URL serving callback media (mock-sms-provider)")
	requests := flag.Int("n", 1000, "callbacks per scenario")
	concurrency := flag.Int("c", 50, "concurrent senders")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := &http.Client{Timeout: 30 * time.Second}
	ctx := context.Background()

	resp, err := client.Get(*base + "/health")
	if err != nil {
		log.Error("webhook unreachable, start cmd/inbound-webhook first", "base", *base, "err", err)
		os.Exit(1)
	}
	resp.Body.Close()

	target := *base + "/twilio/incoming"
	scenarios := []scenario{
		{name: "warmup", requests: 100, concurrency: 10},
		{name: "text", requests: *requests, concurrency: *concurrency},
		{name: "media", requests: *requests / 10, concurrency: *concurrency, numMedia: 2},
	}

	for _, sc := range scenarios {
		log.Info("running scenario", "name", sc.name, "requests", sc.requests)
		run(ctx, client, target, *mediaBase, sc).print(os.Stdout)
	}
}
