package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cooldogedev/spectrum"
	"github.com/cooldogedev/spectrum/server"
	"github.com/cooldogedev/spectrum/session"
	"github.com/cooldogedev/spectrum/util"
	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/heretere/hac"
	"github.com/heretere/hac/inspect"
	"github.com/heretere/hac/settings"
	"github.com/heretere/hac/version"
	"github.com/heretere/hac/version/latest"
	"github.com/sandertv/gophertunnel/minecraft"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "hac",
	Short:        "HAC - movement tracking proxy for Minecraft: Bedrock Edition",
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Proxy players to the remote server, tracking their movement",
	RunE:  runProxy,
}

var spectrumCmd = &cobra.Command{
	Use:   "spectrum",
	Short: "Run as a spectrum proxy, tracking the movement of every session",
	RunE:  runSpectrum,
}

var detectCmd = &cobra.Command{
	Use:   "detect [address]",
	Short: "Print the protocol of a server and the adapter used for it",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDetect,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hac.toml", "path to the settings file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(spectrumCmd)
	rootCmd.AddCommand(detectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the settings, creating the file with the defaults if it does not exist, and starts the
// services every command shares.
func setup(ctx context.Context) (settings.Settings, *logrus.Logger, error) {
	if err := settings.SaveDefault(configPath); err == nil {
		fmt.Printf("created default settings at %s\n", configPath)
	}
	s, err := settings.Load(configPath)
	if err != nil {
		return s, nil, err
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	log.SetLevel(s.LogLevel())

	if s.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         s.Sentry.DSN,
			Environment: s.Sentry.Environment,
		}); err != nil {
			log.Warnf("unable to initialise sentry: %v", err)
		}
	}
	if s.StatsView.Enabled {
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(s.StatsView.Address))
		mgr := statsview.New()
		go mgr.Start()
		go func() {
			<-ctx.Done()
			mgr.Stop()
		}()
	}
	return s, log, nil
}

// startInspector serves the players of h if the inspector is enabled.
func startInspector(ctx context.Context, s settings.Settings, h *hac.HAC, log *logrus.Logger) {
	if !s.Inspector.Enabled {
		return
	}
	srv := inspect.NewServer(h, log, time.Duration(s.Inspector.Interval)*time.Millisecond)
	go func() {
		if err := srv.ListenAndServe(ctx, s.Inspector.Address); err != nil {
			log.Errorf("inspector stopped: %v", err)
		}
	}()
}

func runProxy(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer sentry.Flush(2 * time.Second)

	s, log, err := setup(ctx)
	if err != nil {
		return err
	}
	h, err := hac.New(log, hac.DefaultRegistry(), hac.Options{
		Protocol:     s.Protocol.Version,
		RemoteAddr:   s.Network.RemoteAddress,
		Interception: s.InterceptionOptions(),
	})
	if err != nil {
		log.Errorf("unable to start: %v", err)
		return err
	}
	startInspector(ctx, s, h, log)
	return h.Listen(ctx, s.Network.LocalAddress)
}

func runSpectrum(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer sentry.Flush(2 * time.Second)

	s, log, err := setup(ctx)
	if err != nil {
		return err
	}
	// Spectrum decodes packets with the current protocol, whatever the remote server runs.
	h, err := hac.New(log, hac.DefaultRegistry(), hac.Options{
		Protocol:     latest.ID,
		RemoteAddr:   s.Network.RemoteAddress,
		Interception: s.InterceptionOptions(),
	})
	if err != nil {
		log.Errorf("unable to start: %v", err)
		return err
	}
	startInspector(ctx, s, h, log)

	opts := util.DefaultOpts()
	opts.ClientDecode = hac.ClientDecode
	opts.AutoLogin = false
	opts.Addr = s.Network.LocalAddress
	opts.Token = s.Network.SpectrumToken

	proxy := spectrum.NewSpectrum(server.NewStaticDiscovery(s.Network.RemoteAddress, ""), slog.Default(), opts, nil)
	if err := proxy.Listen(minecraft.ListenConfig{
		StatusProvider: util.NewStatusProvider("HAC Proxy", "HAC"),
	}); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = proxy.Listener().Close()
	}()
	log.Infof("spectrum proxy listening on %v", s.Network.LocalAddress)

	for {
		initialSession, err := proxy.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		go func(sess *session.Session) {
			sess.SetProcessor(h.NewProcessor(sess))
			if err := sess.Login(); err != nil {
				sess.Disconnect(err.Error())
				if !errors.Is(err, context.Canceled) {
					log.Errorf("failed to login session: %v", err)
				}
			}
		}(initialSession)
	}
}

func runDetect(cmd *cobra.Command, args []string) error {
	addr := ""
	if len(args) == 1 {
		addr = args[0]
	} else {
		s, err := settings.Load(configPath)
		if err != nil {
			return err
		}
		addr = s.Network.RemoteAddress
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	id, name, err := version.Detect(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Printf("%s runs %s (protocol %d)\n", addr, name, id)

	reg := hac.DefaultRegistry()
	if a, ok := reg.Lookup(id); ok {
		fmt.Printf("adapter: %s (protocol %d)\n", a.Name(), a.ID())
		return nil
	}
	return fmt.Errorf("no adapter for protocol %d, supported protocols: %v", id, reg.IDs())
}
