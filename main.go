package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/oxchat/torway/internal/config"
	"github.com/oxchat/torway/internal/logger"
	"github.com/oxchat/torway/internal/rlimit"
	"github.com/oxchat/torway/internal/service"
	"github.com/oxchat/torway/internal/socks5"
	"github.com/oxchat/torway/internal/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile = pflag.String("config", "", "Path to YAML configuration file. Flags override file values.")

		socksPort      = pflag.Uint16("socks5-port", 9050, "Local SOCKS5 gateway port on 127.0.0.1. 0 picks a free port.")
		stateDir       = pflag.String("state-dir", defaultDir("state"), "Directory for persistent client state")
		cacheDir       = pflag.String("cache-dir", defaultDir("cache"), "Directory for client cache data")
		useSystemProxy = pflag.Bool("use-system-proxy", false, "Route outbound dials through the runtime-configured proxy")
		proxyURL       = pflag.String("proxy", "", "Upstream proxy URL: socks5://[user:pass@]ip:port | http://[user:pass@]ip:port. Implies --use-system-proxy.")

		dialTimeout        = pflag.Duration("dial-timeout", 10*time.Second, "Timeout for outbound TCP connect")
		negotiationTimeout = pflag.Duration("negotiation-timeout", 10*time.Second, "Timeout for proxy and gateway handshakes")
		ioTimeout          = pflag.Duration("io-timeout", 0, "Absolute lifetime for relayed gateway connections. 0 disables.")
		keepAliveIdle      = pflag.Duration("keep-alive-idle", 60*time.Second, "TCP keep-alive idle time for outbound connections")

		nofileLimit = pflag.Uint64("nofile-limit", 16384, "Raise the soft open-file limit to this value at startup. 0 disables.")

		logLevel  = pflag.String("log-level", "info", "Log level: debug, info, warn, error")
		logFormat = pflag.String("log-format", "text", "Log format: text or json")
		logOutput = pflag.String("log-output", "stderr", "Log output: stdout, stderr or file")
		logFile   = pflag.String("log-file", "", "Log file path when --log-output=file")
	)

	pflag.CommandLine.SortFlags = false
	pflag.Parse()

	cfg := &config.Config{}
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			return fmt.Errorf("invalid --config: %w", err)
		}
	}

	// File values win over flag defaults; explicitly set flags win over the
	// file.
	fileLoaded := *configFile != ""
	flagChanged := pflag.CommandLine.Changed
	if !fileLoaded || flagChanged("socks5-port") {
		cfg.Service.SOCKSPort = *socksPort
	}
	if !fileLoaded || flagChanged("use-system-proxy") {
		cfg.Service.UseSystemProxy = *useSystemProxy
	}
	if cfg.Service.StateDir == "" || flagChanged("state-dir") {
		cfg.Service.StateDir = *stateDir
	}
	if cfg.Service.CacheDir == "" || flagChanged("cache-dir") {
		cfg.Service.CacheDir = *cacheDir
	}
	if cfg.Log.Level == "" || flagChanged("log-level") {
		cfg.Log.Level = *logLevel
	}
	if cfg.Log.Format == "" || flagChanged("log-format") {
		cfg.Log.Format = *logFormat
	}
	if cfg.Log.Output == "" || flagChanged("log-output") {
		cfg.Log.Output = *logOutput
	}
	if flagChanged("log-file") {
		cfg.Log.File = *logFile
	}

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("invalid log configuration: %w", err)
	}

	if *nofileLimit > 0 {
		if cur, err := rlimit.RaiseNofile(*nofileLimit); err != nil {
			logger.Warn("could not raise open-file limit", "want", *nofileLimit, "err", err)
		} else {
			logger.Debug("open-file limit", "soft", cur)
		}
	}

	var proxyInfo *state.ProxyInfo
	if *proxyURL != "" {
		info, err := state.ParseURL(*proxyURL)
		if err != nil {
			return fmt.Errorf("invalid --proxy: %w", err)
		}
		proxyInfo = info
	} else if cfg.Proxy != nil {
		info, err := cfg.Proxy.ProxyInfo()
		if err != nil {
			return fmt.Errorf("invalid proxy configuration: %w", err)
		}
		proxyInfo = info
	}
	if proxyInfo != nil {
		cfg.Service.UseSystemProxy = true
	}

	var gatewayAuth *socks5.Auth
	if cfg.Service.AuthUsername != "" || cfg.Service.AuthPassword != "" {
		gatewayAuth = &socks5.Auth{Username: cfg.Service.AuthUsername, Password: cfg.Service.AuthPassword}
	}

	svc := service.New(service.Options{
		DialTimeout:        *dialTimeout,
		NegotiationTimeout: *negotiationTimeout,
		IOTimeout:          *ioTimeout,
		KeepAlive:          net.KeepAliveConfig{Enable: true, Idle: *keepAliveIdle},
		GatewayAuth:        gatewayAuth,
	})

	if proxyInfo != nil {
		svc.SetProxy(proxyInfo)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port, err := svc.Start(ctx, cfg.Service.SOCKSPort, cfg.Service.StateDir, cfg.Service.CacheDir, cfg.Service.UseSystemProxy)
	if err != nil {
		return err
	}
	logger.Info("socks5 gateway listening", "addr", fmt.Sprintf("127.0.0.1:%d", port))

	<-ctx.Done()

	logger.Info("shutting down")
	svc.Stop()
	return nil
}

func defaultDir(name string) string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, "torway", name)
}
