package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"swapdeck/internal/stream"
	"swapdeck/internal/ws"
)

// streamwatch connects to a swapdeck API server, subscribes to the
// given tokens and pairs, and prints every envelope it receives.
// Useful for watching the fan-out hub without a browser attached.
func main() {
	var (
		serverURL = flag.String("server", envOr("SWAPDECK_URL", "http://localhost:8080"), "API server base URL")
		userID    = flag.String("user", os.Getenv("SWAPDECK_USER"), "user id for targeted pushes")
		wallet    = flag.String("wallet", os.Getenv("SWAPDECK_WALLET"), "wallet address to subscribe with")
		tokens    = flag.String("tokens", "", "comma-separated token addresses")
		pairs     = flag.String("pairs", "", "comma-separated pair symbols")
		pingEvery = flag.Duration("ping", 25*time.Second, "application ping interval")
	)
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	wsURL, err := stream.DeriveURL(*serverURL)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid server URL")
	}

	mgr := stream.NewManager(stream.Options{
		URL:           wsURL,
		Reconnect:     true,
		ReconnectBase: time.Second,
		MaxAttempts:   10,
	})

	mgr.AddStatusListener(func(s stream.Status) {
		logrus.WithField("status", s).Info("Stream status changed")
		if s.IsConnected() {
			mgr.Subscribe(ws.SubscribeFilter{
				UserID:        *userID,
				WalletAddress: *wallet,
				Tokens:        splitList(*tokens),
				Pairs:         splitList(*pairs),
			})
		}
	})

	mgr.AddListener(func(env ws.Envelope) {
		logrus.WithFields(logrus.Fields{
			"type":      env.Type,
			"timestamp": env.Timestamp,
			"data":      string(env.Data),
		}).Info("Envelope received")
	})

	mgr.Connect()

	ticker := time.NewTicker(*pingEvery)
	defer ticker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			mgr.Ping()
		case <-quit:
			logrus.Info("Disconnecting")
			mgr.Disconnect()
			return
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
