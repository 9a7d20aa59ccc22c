package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	autofilter "github.com/kraklabs/autofilter"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	logLevel   uint32
	logPath    string
	configPath string
	rootDir    string
	topN       int
	setName    string
	fetchURL   string
}

func main() {
	var opt options

	root := &cobra.Command{
		Use:   "autofilterd",
		Short: "Adaptive traffic-filtering daemon and reporting tools",
		Long: `Tails a production access log, buckets per-minute request load per
client IP, resolves a policy threshold cascade, exempts verified
search-engine crawlers via forward-confirmed reverse DNS, and writes a
block ledger for an HTTP server to consume at reload.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().Uint32VarP(&opt.logLevel, "log-level", "l", 4, "log level; 0=Panic .. 6=Trace")

	daemonCmd := &cobra.Command{
		Use:   "daemon <policy-file>",
		Short: "Run the filtering daemon against the production access log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opt, args[0])
		},
	}
	daemonCmd.Flags().StringVar(&opt.logPath, "log", "/var/log/access.log", "production access log path")
	daemonCmd.Flags().StringVar(&opt.configPath, "config", "autofilter.toml", "daemon TOML config path")
	daemonCmd.Flags().StringVar(&opt.rootDir, "root", ".", "root directory for the var/ working directory")

	toptalkersCmd := &cobra.Command{
		Use:   "toptalkers <log-file>",
		Short: "Print the top-N IPs by total load observed in a log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopTalkers(args[0], opt.topN)
		},
	}
	toptalkersCmd.Flags().IntVarP(&opt.topN, "n", "n", 20, "number of IPs to print")

	exthistCmd := &cobra.Command{
		Use:   "exthist <log-file>",
		Short: "Histogram request counts by file extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtHist(args[0])
		},
	}

	bytehistCmd := &cobra.Command{
		Use:   "bytehist <log-file>",
		Short: "Histogram body_bytes_sent into fixed buckets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runByteHist(args[0])
		},
	}

	errorsCmd := &cobra.Command{
		Use:   "errors <log-file>",
		Short: "Print lines with a 5xx status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runErrors(args[0])
		},
	}

	fwPopulateCmd := &cobra.Command{
		Use:   "fw-populate <ledger-file>",
		Short: "Print ipset-add lines for every currently blocked IP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFwPopulate(args[0], opt.setName)
		},
	}
	fwPopulateCmd.Flags().StringVar(&opt.setName, "set", "autofilter-blocked", "ipset name to emit add lines for")

	torFetchCmd := &cobra.Command{
		Use:   "tor-fetch <output-file>",
		Short: "Fetch a plaintext Tor exit-node list and write it to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTorFetch(opt.fetchURL, args[0])
		},
	}
	torFetchCmd.Flags().StringVar(&opt.fetchURL, "url", "https://check.torproject.org/torbulkexitlist", "source URL for the exit-node list")

	root.AddCommand(daemonCmd, toptalkersCmd, exthistCmd, bytehistCmd, errorsCmd, fwPopulateCmd, torFetchCmd)

	cobra.OnInitialize(func() {
		if opt.logLevel > 6 {
			fmt.Fprintf(os.Stderr, "invalid log level: %d\n", opt.logLevel)
			os.Exit(1)
		}
		autofilter.Log.SetLevel(logrus.Level(opt.logLevel))
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(opt options, policyPath string) error {
	policy, err := autofilter.LoadPolicy(policyPath)
	if err != nil {
		return err
	}

	cfg, err := loadDaemonConfig(opt.configPath)
	if err != nil {
		return autofilter.ConfigError{File: opt.configPath, Reason: err.Error()}
	}
	if cfg.Pidfile == "" {
		cfg.Pidfile = filepath.Join(opt.rootDir, "var", "httpd.pid")
	}

	var geo *autofilter.GeoIP
	if cfg.GeoIP.DatabasePath != "" {
		geo, err = autofilter.OpenGeoIP(cfg.GeoIP.DatabasePath)
		if err != nil {
			return err
		}
		defer geo.Close()
	}

	if cfg.Syslog.Address != "" || cfg.Syslog.Network != "" {
		hook, err := autofilter.NewSyslogHook(cfg.Syslog.Network, cfg.Syslog.Address, cfg.Syslog.Tag)
		if err != nil {
			autofilter.Log.WithError(err).Warn("syslog hook disabled")
		} else {
			autofilter.Log.AddHook(hook)
		}
	}

	ledger := autofilter.NewLedger(filepath.Join(opt.rootDir, "var", "bot.conf"))

	verifier := autofilter.NewFCrDNSVerifier(cfg.Resolver.Address, time.Duration(cfg.Resolver.TimeoutSeconds)*time.Second)
	reload := autofilter.NewReloadSignaler(cfg.Pidfile, time.Duration(cfg.Reload.MinIntervalSeconds)*time.Second)

	daemon := autofilter.NewDaemon(opt.logPath, policy, ledger, verifier, geo, reload)

	var admin *autofilter.AdminListener
	if cfg.Admin.Address != "" {
		admin = autofilter.NewAdminListener("admin", cfg.Admin.Address)
		go func() {
			if err := admin.Start(); err != nil {
				autofilter.Log.WithError(err).Error("admin listener failed")
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		autofilter.Log.Info("stopping")
		daemon.Stop()
		if admin != nil {
			admin.Stop()
		}
	}()

	return daemon.Run(opt.logPath, cfg.Rotation.CeilingBytes, cfg.Rotation.ArchiveTemplate, cfg.Pidfile)
}
