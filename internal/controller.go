package internal

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hexfield/hexfield/internal/core"
	"github.com/hexfield/hexfield/internal/events"
	"github.com/hexfield/hexfield/internal/game"
	"github.com/hexfield/hexfield/internal/registry"
	"github.com/hexfield/hexfield/internal/server"
)

// Controller is the main entrypoint for hexfield. It's responsible for
// initializing the shared resources (logging, registries, the game itself),
// wiring up the session server, and launching the transport frontends.
type Controller struct {
	Config *core.Config

	// Engine overrides the game-rules collaborator. Left nil, a logging
	// no-op engine is used.
	Engine game.Engine

	logger   *logrus.Logger
	producer *events.Producer
	wg       sync.WaitGroup
}

// Start blocks until every frontend has shut down or initialization fails.
func (c *Controller) Start(ctx context.Context) error {
	defer c.Shutdown()

	var err error
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		return err
	}

	c.producer = events.NewProducer(c.Config.EventBrokers(), c.Config.Events.Topic, c.logger)

	engine := c.Engine
	if engine == nil {
		engine = &game.NoopEngine{Logger: c.logger}
	}

	g := game.New()
	g.AddListener(&events.GameListener{Producer: c.producer})

	sessionServer := server.NewServer(
		c.Config,
		c.logger,
		registry.NewUserRegistry(),
		registry.NewConnRegistry(),
		g,
		engine,
		game.NewRenderer(),
		c.producer,
	)

	c.logger.Infof("starting %s", c.Config.GameName)

	frontend := &server.Frontend{
		Address: c.Config.GameAddress(),
		Server:  sessionServer,
		Config:  c.Config,
		Logger:  c.logger,
	}
	if err := frontend.Start(ctx, &c.wg); err != nil {
		return err
	}

	if c.Config.WebSocketServer.Port != 0 {
		wsFrontend := &server.WebSocketFrontend{
			Address: c.Config.WebSocketAddress(),
			Server:  sessionServer,
			Logger:  c.logger,
		}
		if err := wsFrontend.Start(ctx, &c.wg); err != nil {
			return err
		}
	}

	c.wg.Wait()
	return nil
}

// Shutdown releases resources held by the controller after the frontends
// have drained.
func (c *Controller) Shutdown() {
	c.wg.Wait()
	if err := c.producer.Close(); err != nil {
		c.logger.Warnf("closing event producer: %v", err)
	}
}
