package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"forex-signal-bot/internal/api"
	"forex-signal-bot/internal/client"
	"forex-signal-bot/internal/features"
	"forex-signal-bot/internal/ml"
	"forex-signal-bot/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const usage = `Usage: forexctl [flags] <command> [args]

Commands:
  health              Service health
  info                Service info and endpoints
  predict [file]      Score a feature vector read from file or stdin (JSON)
  simulate PAIR       Score a simulated snapshot
  scenarios PAIR      Run the BUY/SELL/HOLD scenario checks
  all                 Score a simulated snapshot for every configured pair
  retrain             Retrain the server's model
  model               Live model metadata
  stream PAIR         Follow the live prediction stream
  train-local         Fit and evaluate a forest locally, optionally saving it

Flags:
`

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "forexbot base URL")
		timeout  = flag.Duration("timeout", 30*time.Second, "Request timeout")
		logLevel = flag.String("log-level", "info", "Log level: debug, info, warn, error")
		trees    = flag.Int("trees", ml.DefaultTrees, "train-local: number of trees")
		folds    = flag.Int("folds", ml.DefaultCVFolds, "train-local: cross validation folds")
		seed     = flag.Int64("seed", 42, "train-local: fold shuffle seed")
		out      = flag.String("out", "", "train-local: write the model artifact to this path")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*server, *timeout)
	cmd, rest := args[0], args[1:]

	var result interface{}
	switch cmd {
	case "health":
		result, err = c.Health(ctx)
	case "info":
		result, err = c.Info(ctx)
	case "predict":
		var fv features.FeatureVector
		if fv, err = readVector(rest); err == nil {
			result, err = c.Predict(ctx, fv)
		}
	case "simulate":
		result, err = withPair(rest, func(pair string) (interface{}, error) { return c.Simulate(ctx, pair) })
	case "scenarios":
		result, err = withPair(rest, func(pair string) (interface{}, error) { return c.Scenarios(ctx, pair) })
	case "all":
		result, err = c.PredictAll(ctx)
	case "retrain":
		result, err = c.Retrain(ctx)
	case "model":
		result, err = c.ModelInfo(ctx)
	case "stream":
		_, err = withPair(rest, func(pair string) (interface{}, error) {
			return nil, c.Stream(ctx, pair, printStreamMessage)
		})
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case "train-local":
		result, err = trainLocal(*trees, *folds, *seed, *out)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	// A degraded health report is still worth printing.
	if result != nil && (err == nil || cmd == "health") {
		printJSON(result)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", cmd).Msg("Command failed")
	}
}

func withPair(args []string, fn func(pair string) (interface{}, error)) (interface{}, error) {
	if len(args) != 1 {
		return nil, errors.New("expected exactly one currency pair argument")
	}
	return fn(strings.ToUpper(args[0]))
}

func readVector(args []string) (features.FeatureVector, error) {
	var r io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return features.FeatureVector{}, err
		}
		defer f.Close()
		r = f
	}

	var fv features.FeatureVector
	if err := json.NewDecoder(r).Decode(&fv); err != nil {
		return features.FeatureVector{}, fmt.Errorf("decode feature vector: %w", err)
	}
	return fv, nil
}

func printStreamMessage(msg api.SimulationResponse) {
	p := msg.Prediction
	log.Info().
		Str("pair", p.Pair).
		Str("signal", p.Signal.String()).
		Float64("confidence", p.Confidence).
		Str("risk", p.RiskLevel.String()).
		Bool("trade", p.ShouldTrade).
		Float64("rsi", msg.Input.RSI).
		Float64("close", msg.Input.Close).
		Msg(p.Reason)
}

// trainLocal fits the catalogue without a server, which is handy for
// checking forest settings before deploying them.
func trainLocal(trees, folds int, seed int64, out string) (interface{}, error) {
	var store storage.ModelStore
	if out != "" {
		store = storage.NewFileStore(out)
	}

	manager := ml.NewManager(ml.ManagerConfig{
		Store:   store,
		Factory: func() ml.Classifier { return ml.NewForest(trees) },
		CVFolds: folds,
		CVSeed:  seed,
	})
	meta, err := manager.Retrain()
	if err != nil {
		return nil, err
	}
	if store != nil {
		// persist failures are only logged by the manager
		if _, err := store.Load(); err != nil {
			return nil, fmt.Errorf("model artifact not written: %w", err)
		}
		log.Info().Str("path", out).Msg("Model artifact written")
	}
	return meta, nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to print result")
	}
}
