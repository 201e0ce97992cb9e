// Command tribunal puts a historical figure on trial: parallel research,
// judicial review, and a final report under court_records/.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/veritaslab/tribunal/config"
	"github.com/veritaslab/tribunal/court"
	"github.com/veritaslab/tribunal/internal/metrics"
	"github.com/veritaslab/tribunal/providers/gemini"
	"github.com/veritaslab/tribunal/tools"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config (optional)")
		metricsAddr = flag.String("metrics-addr", "", "expose Prometheus metrics on this address (optional)")
	)
	flag.Parse()

	if err := run(*configPath, *metricsAddr, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "tribunal:", err)
		os.Exit(1)
	}
}

func run(configPath, metricsAddr string, args []string) error {
	cfg, err := config.NewLoader().WithConfigPath(configPath).Load()
	if err != nil {
		return err
	}

	logger, err := cfg.BuildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	subject := strings.TrimSpace(strings.Join(args, " "))
	if subject == "" {
		subject, err = promptSubject()
		if err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector("tribunal", registry, logger)
	if metricsAddr != "" {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		go serveMetrics(metricsAddr, registry, logger)
	}

	provider := gemini.New(gemini.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	}, logger)

	courtroom, err := court.New(court.Config{
		Model:   cfg.LLM.Model,
		BaseDir: cfg.Court.BaseDir,
		Wikipedia: tools.WikipediaConfig{
			BaseURL:    cfg.Wikipedia.BaseURL,
			MaxResults: cfg.Wikipedia.MaxResults,
			MaxChars:   cfg.Wikipedia.MaxChars,
			Timeout:    cfg.Wikipedia.Timeout,
			UserAgent:  cfg.Wikipedia.UserAgent,
		},
	}, provider, collector, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := courtroom.Run(ctx, subject); err != nil {
		return err
	}

	fmt.Println("Verdict recorded:", courtroom.ReportPath(subject))
	return nil
}

func promptSubject() (string, error) {
	fmt.Println("Welcome to The Historical Court.")
	fmt.Print("Name a historical figure or event to put on trial: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read subject: %w", err)
	}
	subject := strings.TrimSpace(line)
	if subject == "" {
		return "", fmt.Errorf("no subject given")
	}
	return subject, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", zap.Error(err))
	}
}
