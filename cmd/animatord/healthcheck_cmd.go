// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/ManuGH/animator/internal/config"
	"github.com/ManuGH/animator/internal/health"
)

func runHealthcheckCLI(args []string) int {
	return runHealthcheckCLIWithOutput(args, os.Stdout, os.Stderr)
}

func runHealthcheckCLIWithOutput(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("animatord healthcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mode := fs.String("mode", "ready", "ready (controller and domain checks) or live")
	addr := fs.String("addr", config.ParseString(config.EnvListenAddr, config.Defaults().Server.ListenAddr),
		"admin API address; an empty host means localhost")
	timeout := fs.Duration("timeout", 5*time.Second, "request timeout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var path string
	switch *mode {
	case "ready":
		path = "/readyz"
	case "live":
		path = "/healthz?verbose=true"
	default:
		fmt.Fprintf(stderr, "Unknown healthcheck mode: %s\n", *mode)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rep, code, err := fetchReport(ctx, baseURL(*addr)+path)
	if err != nil {
		fmt.Fprintf(stderr, "Healthcheck failed: %v\n", err)
		return 1
	}

	if code != http.StatusOK || (*mode == "ready" && !rep.Ready) {
		fmt.Fprintf(stderr, "Healthcheck failed (%d, %s)\n", code, rep.Status)
		printChecks(stderr, rep)
		return 1
	}

	fmt.Fprintf(stdout, "Healthcheck successful (%s, %s)\n", *mode, rep.Status)
	printChecks(stdout, rep)
	return 0
}

// baseURL turns a listen address such as ":8089" into a dialable URL.
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func fetchReport(ctx context.Context, url string) (health.Report, int, error) {
	var rep health.Report
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return rep, 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return rep, 0, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return rep, resp.StatusCode, fmt.Errorf("decode %s response: %w", resp.Status, err)
	}
	return rep, resp.StatusCode, nil
}

// printChecks lists non-healthy checks, worst first in name order.
func printChecks(w io.Writer, rep health.Report) {
	names := make([]string, 0, len(rep.Checks))
	for name, res := range rep.Checks {
		if res.Status != health.StatusHealthy {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := rep.Checks[names[i]], rep.Checks[names[j]]
		if a.Status != b.Status {
			return a.Status == health.StatusUnhealthy
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		res := rep.Checks[name]
		fmt.Fprintf(w, "  %s: %s %s\n", name, res.Status, res.Message)
	}
}
