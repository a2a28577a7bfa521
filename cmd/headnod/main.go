// Command headnod alternately nods and shakes an avatar's head by streaming
// joint rotations to a puppetry host.
//
// With the default stdio transport the host launches headnod as a child
// process and talks to it over stdin/stdout; logs go to stderr.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teslashibe/go-puppet/internal/config"
	"github.com/teslashibe/go-puppet/internal/log"
	"github.com/teslashibe/go-puppet/pkg/animation"
	"github.com/teslashibe/go-puppet/pkg/player"
	"github.com/teslashibe/go-puppet/pkg/protocol"
	"github.com/teslashibe/go-puppet/pkg/transport"
	"github.com/teslashibe/go-puppet/pkg/web"
)

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"update-period":      "update_period",
	"pulse-period":       "pulse_period",
	"oscillation-period": "oscillation_period",
	"amplitude":          "amplitude",
	"joint":              "joint",
	"transport":          "transport",
	"ws-url":             "websocket.url",
	"mqtt-broker":        "mqtt.broker",
	"mqtt-topic":         "mqtt.topic",
	"mqtt-client-id":     "mqtt.client_id",
	"dashboard-port":     "dashboard.port",
	"log-level":          "log.level",
	"log-format":         "log.format",
	"log-file":           "log.file",
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "headnod",
		Short:         "Nod and shake an avatar's head",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, cfgFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			log.InitFile(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigChan)
			go func() {
				select {
				case sig := <-sigChan:
					log.Info("shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			err = run(ctx, cfg, stdin, stdout, log.L())
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("headnod failed", "error", err)
				return err
			}
			return nil
		},
	}

	d := config.Default()
	flags := cmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default ./puppet.yaml)")
	flags.Duration("update-period", d.UpdatePeriod, "time between frames")
	flags.Float64("pulse-period", d.PulsePeriod, "seconds for one nod+shake cycle")
	flags.Float64("oscillation-period", d.OscillationPeriod, "seconds for one swing")
	flags.Float64("amplitude", d.Amplitude, "peak rotation in radians")
	flags.String("joint", d.Joint, "joint receiving the rotation")
	flags.String("transport", d.Transport, "host transport: stdio, websocket or mqtt")
	flags.String("ws-url", d.WebSocket.URL, "websocket host URL")
	flags.String("mqtt-broker", d.MQTT.Broker, "MQTT broker URL")
	flags.String("mqtt-topic", d.MQTT.Topic, "MQTT topic for pose updates")
	flags.String("mqtt-client-id", d.MQTT.ClientID, "MQTT client id")
	flags.String("dashboard-port", d.Dashboard.Port, "serve the pose dashboard on this port (empty disables)")
	flags.String("log-level", d.Log.Level, "debug, info, warn or error")
	flags.String("log-format", d.Log.Format, "text or json")
	flags.String("log-file", d.Log.File, "also write JSON logs to this rotating file")

	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
	return cmd
}

// run wires the animation, session and optional dashboard, then drives
// frames until the host stops the session or ctx is cancelled.
func run(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	anim, err := animation.NewNodShake(animation.Config{
		PulsePeriod:       cfg.PulsePeriod,
		OscillationPeriod: cfg.OscillationPeriod,
		Amplitude:         cfg.Amplitude,
		Joint:             cfg.Joint,
	})
	if err != nil {
		return err
	}

	session, err := openSession(ctx, cfg, stdin, stdout, logger)
	if err != nil {
		return err
	}
	defer session.Close()

	session.Handle(protocol.CommandLookAt, func(args map[string]interface{}) {
		logger.Debug("look_at ignored by head nod", "args", args)
	})

	runner, err := player.NewRunner(anim, session, cfg.UpdatePeriod)
	if err != nil {
		return err
	}
	runner.SetLogger(logger)

	if cfg.Dashboard.Port != "" {
		dash := web.NewServer(cfg.Dashboard.Port, cfg.Joint, runner)
		runner.AddObserver(dash)

		dashCtx, stopDash := context.WithCancel(ctx)
		dashDone := make(chan struct{})
		go func() {
			defer close(dashDone)
			if err := dash.Run(dashCtx); err != nil {
				logger.Warn("dashboard stopped", "error", err)
			}
		}()
		defer func() {
			stopDash()
			<-dashDone
		}()
	}

	logger.Info("head nod starting",
		"transport", cfg.Transport,
		"joint", cfg.Joint,
		"update_period", cfg.UpdatePeriod,
		"pulse_period", cfg.PulsePeriod,
		"oscillation_period", cfg.OscillationPeriod)

	return runner.Run(ctx)
}

// openSession connects the configured transport.
func openSession(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (transport.Session, error) {
	switch cfg.Transport {
	case "stdio":
		s := transport.NewStdio(stdin, stdout, logger)
		s.Start(ctx)
		return s, nil
	case "websocket":
		return transport.DialWebSocket(ctx, cfg.WebSocket.URL, logger)
	case "mqtt":
		return transport.DialMQTT(ctx, transport.MQTTOptions{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
		}, logger)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownTransport, cfg.Transport)
	}
}
