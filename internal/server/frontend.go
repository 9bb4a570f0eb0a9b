package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hexfield/hexfield/internal/core"
	"github.com/hexfield/hexfield/internal/packets"
)

// Frontend implements the concurrent TCP connection logic. Connections are
// accepted here and handed to the Server, abstracting the lower level
// connection details away from the session layer.
type Frontend struct {
	Address string
	Server  *Server
	Config  *core.Config
	Logger  *logrus.Logger
}

// Start opens the listen socket and spins off the blocking accept loop,
// registered on the WaitGroup. Context cancellation stops the server.
func (f *Frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	socket, err := f.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %w", f.Address, err)
	}

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

func (f *Frontend) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address: %w", err)
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %w", err)
	}

	return socket, nil
}

// startBlockingLoop accepts new connections and spins off a goroutine per
// client for the Server to handle them.
func (f *Frontend) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Infof("waiting for connections on %v", f.Address)

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			// Poll until we can accept more clients.
			for f.Server.ActiveSessions() >= f.Config.MaxConnections {
				time.Sleep(time.Second)
			}

			connection, err := socket.AcceptTCP()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				f.Logger.Warnf("failed to accept connection: %v", err)
				continue
			}

			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			go func() {
				defer clientWg.Done()
				f.Server.ServeTransport(ctx, newTCPTransport(connection))
			}()
		}
	}

	_ = socket.Close()
	f.Logger.Info("shutting down (waiting for connections to close)")
	clientWg.Wait()
	f.Logger.Info("exited")
}

// tcpTransport frames packets over a raw TCP connection.
type tcpTransport struct {
	conn *net.TCPConn
}

func newTCPTransport(conn *net.TCPConn) *tcpTransport {
	return &tcpTransport{conn: conn}
}

func (t *tcpTransport) ReadPacket() (*packets.Envelope, error) {
	return packets.Read(t.conn)
}

func (t *tcpTransport) WritePacket(env *packets.Envelope) error {
	return packets.Write(t.conn, env)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
