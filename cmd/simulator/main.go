package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"bipv-docs/internal/logging"
	"bipv-docs/simulator"

	"github.com/sirupsen/logrus"
)

func main() {
	config := simulator.DefaultSimConfig()

	flag.StringVar(&config.EngineURL, "url", config.EngineURL, "engine base URL")
	flag.IntVar(&config.NumUsers, "users", config.NumUsers, "number of simulated users")
	flag.DurationVar(&config.SimulationTime, "duration", config.SimulationTime, "how long to run")
	flag.Float64Var(&config.CreateFrequency, "create", config.CreateFrequency, "documents created per user per hour")
	flag.Float64Var(&config.ReadFrequency, "read", config.ReadFrequency, "reads per user per hour")
	flag.Float64Var(&config.UpdateFrequency, "update", config.UpdateFrequency, "updates per user per hour")
	flag.Float64Var(&config.TransferFrequency, "transfer", config.TransferFrequency, "transfers per user per hour")
	flag.Float64Var(&config.DeleteFrequency, "delete", config.DeleteFrequency, "deletes per user per hour")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	if err := logging.Setup(*logLevel, false); err != nil {
		logrus.WithError(err).Fatal("Invalid log level")
	}

	logrus.WithFields(logrus.Fields{
		"url":      config.EngineURL,
		"users":    config.NumUsers,
		"duration": config.SimulationTime,
		"create":   config.CreateFrequency,
		"read":     config.ReadFrequency,
		"update":   config.UpdateFrequency,
		"transfer": config.TransferFrequency,
		"delete":   config.DeleteFrequency,
		"zipf":     config.ZipfS,
	}).Info("Starting simulation")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, config.SimulationTime)
	defer cancel()

	sim := simulator.NewEnhancedSimulator(config)
	if err := sim.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("Simulation failed")
	}

	metrics := sim.GetMetrics()
	logrus.WithFields(logrus.Fields{
		"users":     metrics.TotalUsers,
		"requests":  metrics.TotalRequests,
		"failed":    metrics.FailedRequests,
		"avgLat":    metrics.AverageLatency,
		"p95Lat":    metrics.P95Latency,
		"created":   metrics.DocumentsCreated,
		"reads":     metrics.DocumentsRead,
		"updates":   metrics.Updates,
		"transfers": metrics.Transfers,
		"deletes":   metrics.Deletes,
		"documents": metrics.KnownDocuments,
	}).Info("Simulation completed")
}
