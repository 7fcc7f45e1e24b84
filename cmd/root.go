package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/netscope/netscope/capture"
	"github.com/netscope/netscope/conns"
	"github.com/netscope/netscope/log"
	"github.com/netscope/netscope/lookup"
	"github.com/netscope/netscope/monitor"
	"github.com/netscope/netscope/pingmon"
	"github.com/netscope/netscope/probe"
	"github.com/netscope/netscope/publicip"
	"github.com/netscope/netscope/server"
)

type args struct {
	iface        string
	filter       string
	pingTarget   string
	addr         string
	intervalMs   int
	maxTTL       int
	cycles       int
	pollMs       int
	wantV6       bool
	verbose      bool
	skipPublicIP bool
}

var Args args

var rootCmd = &cobra.Command{
	Use:   "netscope [target]",
	Short: "Hop-by-hop path probing and link-layer traffic monitoring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, cmdArgs []string) error {
		log.SetVerbose(Args.verbose)
		return runSession(cmd.Context(), cmdArgs[0])
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSession(ctx context.Context, target string) error {
	cfg := monitor.Config{}

	prober := probe.NewProber(probe.Config{
		Interval: time.Duration(Args.intervalMs) * time.Millisecond,
		MaxHops:  Args.maxTTL,
		Cycles:   Args.cycles,
		WantV6:   Args.wantV6,
	})
	probeCh, err := prober.Start(target)
	if err != nil {
		return classified(err)
	}
	defer prober.Stop()
	cfg.Probe = probeCh

	var engine *capture.Engine
	if Args.iface != "" {
		engine = capture.NewEngine(capture.Config{
			Interface: Args.iface,
			Filter:    Args.filter,
		})
		captureCh, err := engine.Start()
		if err != nil {
			return classified(err)
		}
		defer engine.Stop()
		cfg.Capture = captureCh
		cfg.Counters = engine.Counters()
	}

	poller := conns.NewPoller(time.Duration(Args.pollMs) * time.Millisecond)
	cfg.Conns = poller.Start()
	defer poller.Stop()

	pinger := pingmon.NewMonitor(time.Duration(Args.intervalMs) * time.Millisecond)
	pingCh, err := pinger.Start(Args.pingTarget, Args.wantV6)
	if err != nil {
		return classified(err)
	}
	defer pinger.Stop()
	cfg.Ping = pingCh

	cfg.Lookup = lookup.Run(target)
	if !Args.skipPublicIP {
		cfg.PublicIP = publicip.Fetch(Args.wantV6)
	}

	mon := monitor.New(cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		mon.Run(ctx)
		return nil
	})

	if Args.addr != "" {
		srv := server.NewServer(mon)
		g.Go(func() error {
			return srv.Start(Args.addr)
		})
		g.Go(func() error {
			<-ctx.Done()
			return srv.Shutdown()
		})
	}

	if err := g.Wait(); err != nil {
		return classified(err)
	}

	jsonStr, err := json.MarshalIndent(mon.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("JSON marshalling failed: %v", err)
	}
	fmt.Println(string(jsonStr))
	return nil
}

// classified tags worker errors with their code so scripted callers can
// match on it.
func classified(err error) error {
	cerr := monitor.ClassifyError(err)
	return fmt.Errorf("[%s] %w", cerr.Code, err)
}

func init() {
	rootCmd.Flags().StringVarP(&Args.iface, "interface", "i", "", "Interface to capture on (capture disabled when empty)")
	rootCmd.Flags().StringVarP(&Args.filter, "filter", "f", "", "Case-insensitive packet summary filter")
	rootCmd.Flags().StringVarP(&Args.pingTarget, "ping-target", "", "1.1.1.1", "Reference host for the latency monitor")
	rootCmd.Flags().StringVarP(&Args.addr, "addr", "a", "", "HTTP API listen address (disabled when empty)")
	rootCmd.Flags().IntVarP(&Args.intervalMs, "interval", "", 1000, "Pause between probe cycles (ms)")
	rootCmd.Flags().IntVarP(&Args.maxTTL, "max-ttl", "m", probe.DefaultMaxHops, "Maximum TTL")
	rootCmd.Flags().IntVarP(&Args.cycles, "cycles", "c", 0, "Number of probe cycles (0 runs until interrupted)")
	rootCmd.Flags().IntVarP(&Args.pollMs, "conn-poll", "", 2000, "Connection table poll interval (ms)")
	rootCmd.Flags().BoolVarP(&Args.wantV6, "ipv6", "", false, "IPv6")
	rootCmd.Flags().BoolVarP(&Args.verbose, "verbose", "v", false, "verbose")
	rootCmd.Flags().BoolVarP(&Args.skipPublicIP, "no-public-ip", "", false, "Skip public IP discovery")
}
