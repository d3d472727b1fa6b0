package main

import (
	"context"
	"crypto/tls"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/imapd/auth"
	"github.com/go-pluto/imapd/config"
	"github.com/go-pluto/imapd/crypto"
	"github.com/go-pluto/imapd/handlers"
	"github.com/go-pluto/imapd/imap"
	"github.com/go-pluto/imapd/mailbox"
	"github.com/go-pluto/imapd/server"
	"github.com/go-pluto/imapd/storage"
	flag "github.com/spf13/pflag"
)

// Constants

// shutdownGrace is how long running sessions get to
// finish after a termination signal.
const shutdownGrace = 10 * time.Second

// Functions

// initAuthenticator of the correct implementation specified
// in the config to be used by the LOGIN and AUTHENTICATE
// handlers.
func initAuthenticator(ctx context.Context, conf *config.Config) (auth.PlainAuthenticator, error) {

	switch conf.Auth.Adapter {
	case "AuthPostgres":
		// Connect to PostgreSQL database.
		return auth.NewPostgresAuthenticator(
			ctx,
			conf.Auth.Postgres.IP,
			conf.Auth.Postgres.Port,
			conf.Auth.Postgres.Database,
			conf.Auth.Postgres.User,
			conf.Auth.Postgres.Password,
			conf.Auth.Postgres.UseTLS,
		)
	default: // AuthFile
		// Open authentication file and read user information.
		return auth.NewFileAuthenticator(
			conf.Auth.File.File,
			conf.Auth.File.Separator,
		)
	}
}

// initLogger initializes a JSON gokit-logger set
// to the according log level supplied via cli flag.
func initLogger(loglevel string) log.Logger {

	logger := log.NewJSONLogger(log.NewSyncWriter(os.Stdout))
	logger = log.With(logger,
		"ts", log.DefaultTimestampUTC,
		"caller", log.DefaultCaller,
	)

	switch strings.ToLower(loglevel) {
	case "info":
		logger = level.NewFilter(logger, level.AllowInfo())
	case "warn":
		logger = level.NewFilter(logger, level.AllowWarn())
	case "error":
		logger = level.NewFilter(logger, level.AllowError())
	default:
		logger = level.NewFilter(logger, level.AllowDebug())
	}

	return logger
}

// initEngine assembles the protocol engine from the
// config and the already opened collaborators.
func initEngine(logger log.Logger, conf *config.Config, m *PlutoMetrics, backend storage.Backend, authenticator auth.PlainAuthenticator, store *mailbox.Store, noDaemonize bool) *imap.Engine {

	h := handlers.New(authenticator, store, conf.IMAP.HierarchySeparator, conf.IMAP.IdleInterval.Duration)

	commands := imap.NewCommandTable(h.Table(),
		imap.NewLoggingMiddleware(log.With(logger, "component", "handlers")),
		imap.NewInstrumentingMiddleware(m.IMAP),
	)

	return &imap.Engine{
		Logger:             logger,
		Metrics:            m.IMAP,
		Backend:            backend,
		Commands:           commands,
		Banner:             conf.IMAP.Greeting,
		MaxFaultyResponses: conf.IMAP.MaxFaultyResponses,
		LoginTimeout:       conf.IMAP.LoginTimeout.Duration,
		Timeout:            conf.IMAP.Timeout.Duration,
		MaxLiteralSize:     conf.IMAP.MaxLiteralSize,
		NoDaemonize:        (conf.IMAP.NoDaemonize || noDaemonize),
	}
}

func main() {

	// Set CPUs usable by pluto to all available.
	runtime.GOMAXPROCS(runtime.NumCPU())

	// Parse command-line flags.
	configFlag := flag.String("config", "config.toml", "Provide path to configuration file in TOML syntax.")
	envFlag := flag.String("env", ".env", "Provide path to a .env file holding secrets.")
	loglevelFlag := flag.String("loglevel", "debug", "This flag sets the default logging level.")
	noDaemonizeFlag := flag.Bool("no-daemonize", false, "Terminate the process as soon as the first session ends.")
	flag.Parse()

	logger := initLogger(*loglevelFlag)

	// Read configuration from file.
	conf, err := config.LoadConfig(*configFlag)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load the config", "err", err)
		os.Exit(1)
	}

	env, err := config.LoadEnv(*envFlag)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load the environment", "err", err)
		os.Exit(1)
	}
	env.Apply(conf)

	ctx := context.Background()

	authenticator, err := initAuthenticator(ctx, conf)
	if err != nil {
		level.Error(logger).Log("msg", "failed to initialize an authenticator", "err", err)
		os.Exit(2)
	}

	store, err := mailbox.NewStore(conf.Storage.MaildirRoot)
	if err != nil {
		level.Error(logger).Log("msg", "failed to open maildir root", "err", err)
		os.Exit(3)
	}

	m := NewPlutoMetrics(conf.Server.PrometheusAddr)
	go runPromHTTP(logger, conf.Server.PrometheusAddr)

	backend, err := storage.New(ctx, logger, conf.Storage, store)
	if err != nil {
		level.Error(logger).Log("msg", "failed to initialize storage backend", "err", err)
		os.Exit(3)
	}
	backend = storage.NewInstrumentingBackend(backend, m.Storage.PingDuration, m.Storage.PingFailures)
	defer backend.Close()

	tlsConfig, err := crypto.NewPublicTLSConfig(conf.Server.PublicCertLoc, conf.Server.PublicKeyLoc)
	if err != nil {
		level.Error(logger).Log("msg", "failed to load TLS config", "err", err)
		os.Exit(4)
	}

	listener, err := tls.Listen("tcp", conf.Server.ListenAddr, tlsConfig)
	if err != nil {
		level.Error(logger).Log("msg", "failed to listen for IMAP clients", "addr", conf.Server.ListenAddr, "err", err)
		os.Exit(4)
	}

	engine := initEngine(logger, conf, m, backend, authenticator, store, *noDaemonizeFlag)
	srv := server.New(logger, engine)

	// Stop accepting on SIGINT and SIGTERM and give running
	// sessions some time to end.
	go func() {

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

		s := <-sig
		level.Info(logger).Log("msg", "received signal, shutting down", "signal", s)

		srv.Close()
	}()

	if err := srv.Run(listener); err != nil {
		level.Error(logger).Log("msg", "failed to serve IMAP clients", "err", err)
		os.Exit(5)
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()

	if err := srv.Wait(ctx); err != nil {
		level.Warn(logger).Log("msg", "sessions still running at shutdown", "err", err)
	}
}
