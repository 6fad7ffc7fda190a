package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
	"github.com/ForteScarlet/codex-kkp/internal/cliargs"
	"github.com/ForteScarlet/codex-kkp/internal/codex"
	"github.com/ForteScarlet/codex-kkp/internal/command"
	"github.com/ForteScarlet/codex-kkp/internal/config"
	"github.com/ForteScarlet/codex-kkp/internal/event"
	"github.com/ForteScarlet/codex-kkp/internal/logger"
	"github.com/ForteScarlet/codex-kkp/internal/metrics"
	"github.com/ForteScarlet/codex-kkp/internal/redisclient"
	"github.com/ForteScarlet/codex-kkp/internal/result"
	"github.com/ForteScarlet/codex-kkp/internal/runner"
	"github.com/ForteScarlet/codex-kkp/internal/sink"
	"github.com/ForteScarlet/codex-kkp/internal/tracing"
	"github.com/ForteScarlet/codex-kkp/internal/webhook"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code. It is non-zero only when the wrapper
// could not run codex; what the agent reported is carried by the envelope.
func run(args []string, stdout, stderr io.Writer) int {
	printer := result.Printer{Stdout: stdout, Stderr: stderr}

	if len(args) == 1 && (args[0] == "version" || args[0] == "--version") {
		fmt.Fprintln(stdout, "codex-kkp", version)
		return apperror.ExitOK
	}

	parsed, err := cliargs.Parse(args)
	if errors.Is(err, cliargs.ErrHelp) {
		fmt.Fprint(stdout, cliargs.Usage())
		return apperror.ExitOK
	}
	if err != nil {
		return fail(printer, err)
	}

	cfg, err := config.Load(parsed.ConfigFile)
	if err != nil {
		return fail(printer, err)
	}

	logOutput, closeLog, err := logger.OpenOutput(cfg.Logging.Output)
	if err != nil {
		return fail(printer, apperror.InvalidConfig("%v", err))
	}
	defer closeLog()
	log := logger.Setup(cfg.Logging.Level, cfg.Logging.Format, logOutput)
	log.Debug("starting codex-kkp", "version", version)

	if parsed.Task == "" {
		return fail(printer, apperror.InvalidConfig("No task prompt specified"))
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Endpoint:     cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		ServiceName:  "codex-kkp",
		Version:      version,
	})
	if err != nil {
		log.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("flushing traces failed", "error", err)
		}
	}()

	eventSink, closeSink := openSink(ctx, cfg, log)
	defer closeSink()

	client := codex.NewClient(
		codex.WithProgram(cfg.Codex.Binary),
		codex.WithBinaryCheck(cfg.Codex.CheckBinary),
		codex.WithMergedStreams(cfg.Codex.MergeStderr),
		codex.WithExecutor(command.New(command.WithLogger(log))),
		codex.WithParser(event.NewParser(
			event.WithRepair(cfg.Parser.Repair),
			event.WithLogger(log),
		)),
		codex.WithClientLogger(log),
	)
	r := runner.New(client, runner.WithSink(eventSink), runner.WithLogger(log))

	env, err := r.Run(ctx, runner.Request{
		Task:    parsed.Task,
		Config:  parsed.Config,
		Full:    parsed.Full,
		RawArgs: args,
	})

	if werr := metrics.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
		log.Warn("writing metrics textfile failed", "path", cfg.Metrics.Textfile, "error", werr)
	}

	if err != nil {
		return fail(printer, err)
	}
	if err := printer.Print(env); err != nil {
		log.Error("printing result failed", "error", err)
		return apperror.ExitInternal
	}
	return apperror.ExitOK
}

// fail prints err as an error envelope and returns its exit code.
func fail(printer result.Printer, err error) int {
	if perr := printer.Print(result.Failure("Error: " + err.Error())); perr != nil {
		slog.Error("printing error result failed", "error", perr)
	}
	return apperror.ExitCode(err)
}

// openSink assembles the configured event sinks: the Redis streamer and
// the completion webhook. With neither configured it returns a Nop.
func openSink(ctx context.Context, cfg *config.Config, log *slog.Logger) (sink.Sink, func()) {
	var sinks sink.Multi
	closeSink := func() {}

	if streamer, closeRedis := openRedisSink(ctx, cfg.Redis, log); streamer != nil {
		sinks = append(sinks, streamer)
		closeSink = closeRedis
	}
	if cfg.Webhook.URL != "" {
		sinks = append(sinks, webhook.NewSender(
			cfg.Webhook.URL,
			cfg.Webhook.Secret,
			cfg.Webhook.MaxRetries,
			time.Duration(cfg.Webhook.BaseDelayMS)*time.Millisecond,
			log,
		))
	}

	switch len(sinks) {
	case 0:
		return sink.Nop{}, closeSink
	case 1:
		return sinks[0], closeSink
	}
	return sinks, closeSink
}

// openRedisSink connects the Redis streamer when configured. An unreachable
// Redis only disables the sink; the run itself goes ahead.
func openRedisSink(ctx context.Context, cfg config.RedisConfig, log *slog.Logger) (*sink.Streamer, func()) {
	if cfg.URL == "" {
		return nil, nil
	}

	rdb, err := redisclient.New(cfg.URL, cfg.Prefix)
	if err != nil {
		log.Warn("event sink disabled", "error", err)
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx); err != nil {
		log.Warn("event sink disabled, redis unreachable", "error", err)
		_ = rdb.Close()
		return nil, nil
	}

	log.Debug("event sink connected", "prefix", cfg.Prefix)
	streamer := sink.NewStreamer(rdb, time.Duration(cfg.HistoryTTL)*time.Second)
	return streamer, func() { _ = rdb.Close() }
}
