// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"

	"pulse/internal/analysis"
	"pulse/internal/audio"
	"pulse/internal/config"
	"pulse/internal/events"
	"pulse/internal/log"
	"pulse/internal/metrics"
	"pulse/internal/render"
	"pulse/internal/transport"
	"pulse/internal/transport/udp"
	"pulse/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// runPipeline wires source, analysis worker, render worker and transports
// and runs them until ctx is cancelled, the source ends or a worker fails.
//
//	source -> Engine.Run -> events.Channel -> Renderer.Run -> transports
//
// overrides is applied to every reloaded configuration file.
func runPipeline(ctx context.Context, cfg *config.Config, configPath string, monitor bool, overrides func(*config.Config)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var m *metrics.Metrics
	reg := prometheus.NewRegistry()
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.NewMetrics(reg)
	}

	src, err := audio.OpenSource(ctx, cfg)
	if err != nil {
		return err
	}

	ch := events.New[analysis.Event]()
	engine, err := audio.NewEngine(src, cfg, ch, m)
	if err != nil {
		src.Close()
		return err
	}
	defer engine.Close()

	renderer, err := render.NewRenderer(ch, render.ParamsFromConfig(cfg.Render), m)
	if err != nil {
		return err
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			log.Warnf("closing transports: %v", err)
		}
	}()

	if err := addTransports(renderer, cfg); err != nil {
		return err
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		pub, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender, renderer, m)
		if err != nil {
			sender.Close()
			return err
		}
		pub.Start()
		defer pub.Close()
	}

	if configPath != "" {
		hc, err := config.NewHotConfig(configPath)
		if err != nil {
			return err
		}
		if overrides != nil {
			hc.Override(overrides)
		}
		hc.OnReload(config.ApplyLogLevel)
		if err := hc.Watch(ctx); err != nil {
			log.Warnf("config hot reload disabled: %v", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.Metrics.Address, reg)
		})
	}

	if monitor {
		p := tea.NewProgram(
			tui.NewMonitorModel(fmt.Sprintf("%s source", cfg.Source.Kind)),
			tea.WithAltScreen(),
			tea.WithContext(gctx),
		)
		mt := tui.NewMonitorTransport(p)
		renderer.AddTransport("monitor", mt)
		g.Go(func() error {
			defer cancel()
			_, err := p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		return renderer.Run(gctx)
	})

	g.Go(func() error {
		// A finished source ends the whole pipeline.
		defer cancel()
		return engine.Run(gctx)
	})

	return g.Wait()
}

func addTransports(r *render.Renderer, cfg *config.Config) error {
	if cfg.Debug {
		r.AddTransport("log", transport.NewLoggingTransport())
	}
	if cfg.Transport.WebSocketEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddress)
		if err != nil {
			return fmt.Errorf("websocket transport: %w", err)
		}
		r.AddTransport("websocket", ws)
	}
	return nil
}
