package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Critical bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type result struct {
	Target   target
	Status   int
	Match    bool
	Error    error
	Duration time.Duration
}

var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/health", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/ready", Expect: http.StatusOK, Critical: true},
	{Method: http.MethodGet, Path: "/metrics", Expect: http.StatusOK, Critical: false},
	{Method: http.MethodGet, Path: "/api/request_routing_rules", Expect: http.StatusUnauthorized, Critical: true},
	{Method: http.MethodGet, Path: "/notifications/nobody@example.edu", Expect: http.StatusUnauthorized, Critical: true},
}

func main() {
	var (
		base        string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8000", "API base URL")
	flag.StringVar(&targetsPath, "targets", filepath.Join("scripts", "smoke", "targets.json"), "Path to JSON targets file")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Printf("using built-in targets: %v", err)
		targets = defaultTargets
	}

	client := &http.Client{Timeout: timeout}
	breaking := 0

	for _, t := range targets {
		res := probe(client, base, t)
		status := "ok"
		if res.Error != nil {
			status = fmt.Sprintf("error: %v", res.Error)
		} else if !res.Match {
			status = fmt.Sprintf("expected %d got %d", t.Expect, res.Status)
		}
		if (res.Error != nil || !res.Match) && t.Critical {
			breaking++
		}
		fmt.Printf("%-6s %-40s %-30s %s\n", t.Method, t.Path, status, res.Duration.Round(time.Millisecond))
	}

	if breaking > 0 {
		fmt.Printf("smoke check failed: %d critical probe(s) unhealthy\n", breaking)
		os.Exit(1)
	}
	fmt.Println("smoke check passed")
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func probe(client *http.Client, base string, t target) result {
	req, err := http.NewRequest(t.Method, base+t.Path, nil)
	if err != nil {
		return result{Target: t, Error: err}
	}
	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return result{Target: t, Error: err, Duration: elapsed}
	}
	defer resp.Body.Close()
	return result{
		Target:   t,
		Status:   resp.StatusCode,
		Match:    resp.StatusCode == t.Expect,
		Duration: elapsed,
	}
}
