package rabbit

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Logger defines the logging surface of the rabbit package.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=rabbit
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})
}

// Rabbit holds the connection and channel jobs are published and consumed
// on. RetryConnection keeps both alive across broker restarts.
type Rabbit struct {
	cfg Config

	// Channel is exposed for operations this package does not wrap.
	Channel *amqp.Channel

	conn   *amqp.Connection
	logger Logger

	// mu guards conn and Channel while RetryConnection swaps them.
	mu sync.RWMutex

	shutdownSignal chan struct{}
	shutdownOnce   sync.Once
}

// NewClient connects to RabbitMQ and declares the job queue.
func NewClient(cfg Config, logger Logger) (*Rabbit, error) {
	conn, err := newConnection(cfg, logger)
	if err != nil {
		return nil, err
	}

	ch, err := connectToChannel(conn, cfg, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Rabbit{
		cfg:            cfg,
		conn:           conn,
		Channel:        ch,
		logger:         logger,
		shutdownSignal: make(chan struct{}),
	}, nil
}

// connectToChannel opens a channel and declares the durable job queue.
func connectToChannel(conn *amqp.Connection, cfg Config, logger Logger) (*amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to create channel", err, nil)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		cfg.Channel.QueueName,
		true,  // Durable
		false, // AutoDelete
		false, // Exclusive
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		logger.Error("failed to declare queue", err, map[string]interface{}{
			"queue": cfg.Channel.QueueName,
		})
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if cfg.Channel.PrefetchCount > 0 {
		if err = ch.Qos(cfg.Channel.PrefetchCount, 0, false); err != nil {
			logger.Error("failed to set QoS", err, map[string]interface{}{
				"prefetch_count": cfg.Channel.PrefetchCount,
			})
			return nil, fmt.Errorf("failed to set QoS: %w", err)
		}
	}

	return ch, nil
}

// RetryConnection watches the connection and re-establishes it and the
// channel after the broker drops it. It returns once the client is closed.
func (rb *Rabbit) RetryConnection() {
outerLoop:
	for {
		rb.mu.RLock()
		errChan := rb.conn.NotifyClose(make(chan *amqp.Error, 1))
		rb.mu.RUnlock()

		select {
		case <-rb.shutdownSignal:
			rb.logger.Info("stopping RetryConnection loop due to shutdown signal", nil, nil)
			return

		case err := <-errChan:
			rb.logger.Warn("RabbitMQ connection closed, retrying...", err, nil)
			for {
				select {
				case <-rb.shutdownSignal:
					rb.logger.Info("stopping RetryConnection loop due to shutdown signal inside reconnect", nil, nil)
					return
				default:
				}

				newConn, err := newConnection(rb.cfg, rb.logger)
				if err != nil {
					time.Sleep(time.Second)
					continue
				}
				ch, err := connectToChannel(newConn, rb.cfg, rb.logger)
				if err != nil {
					_ = newConn.Close()
					time.Sleep(time.Second)
					continue
				}

				rb.mu.Lock()
				rb.conn = newConn
				rb.Channel = ch
				rb.mu.Unlock()

				rb.logger.Info("reconnected to RabbitMQ", nil, nil)
				continue outerLoop
			}
		}
	}
}

// Close stops RetryConnection and closes the channel and connection.
func (rb *Rabbit) Close() error {
	var err error
	rb.shutdownOnce.Do(func() {
		close(rb.shutdownSignal)

		rb.mu.Lock()
		defer rb.mu.Unlock()

		rb.logger.Info("closing rabbit channel...", nil, nil)
		if rb.Channel != nil && !rb.Channel.IsClosed() {
			if err = rb.Channel.Close(); err != nil {
				rb.logger.Error("error in closing rabbit channel", err, nil)
				return
			}
		}
		if rb.conn != nil && !rb.conn.IsClosed() {
			if err = rb.conn.Close(); err != nil {
				rb.logger.Error("error in closing rabbit connection", err, nil)
			}
		}
	})
	return err
}

func (rb *Rabbit) channel() (*amqp.Channel, error) {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.Channel == nil || rb.Channel.IsClosed() {
		return nil, ErrNotConnected
	}
	return rb.Channel, nil
}

// newConnection dials the broker. TLS is used when IsSSLEnabled is set, with
// a client certificate when UseCert is set as well. Heartbeats run every two
// seconds so a dead broker is noticed quickly.
func newConnection(cfg Config, logger Logger) (*amqp.Connection, error) {
	logger.Info("connecting to Rabbit", nil, nil)

	scheme := "amqp"
	amqpCfg := amqp.Config{Heartbeat: 2 * time.Second}

	if cfg.Connection.IsSSLEnabled {
		scheme = "amqps"
		if cfg.Connection.UseCert {
			tlsConfig, err := clientTLSConfig(cfg.Connection)
			if err != nil {
				logger.Error("failed to load rabbit TLS material", err, nil)
				return nil, err
			}
			amqpCfg.TLSClientConfig = tlsConfig
		}
	}

	hostURL := fmt.Sprintf("%s://%v:%v@%v:%v", scheme, cfg.Connection.User, cfg.Connection.Password, cfg.Connection.Host, cfg.Connection.Port)
	safeURL := fmt.Sprintf("%s://%v@%v:%v", scheme, cfg.Connection.User, cfg.Connection.Host, cfg.Connection.Port)

	conn, err := amqp.DialConfig(hostURL, amqpCfg)
	if err != nil {
		logger.Error("error in connecting to rabbit", err, map[string]interface{}{
			"rabbit_addr": safeURL,
		})
		return nil, fmt.Errorf("failed to connect to Rabbit: %w", err)
	}

	logger.Info("connected to Rabbit", nil, map[string]interface{}{
		"rabbit_addr": safeURL,
	})
	return conn, nil
}

func clientTLSConfig(c Connection) (*tls.Config, error) {
	caCert, err := os.ReadFile(c.CACertPath)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caCert)

	cert, err := tls.LoadX509KeyPair(c.ClientCertPath, c.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("load client cert/key: %w", err)
	}

	return &tls.Config{
		RootCAs:      pool,
		Certificates: []tls.Certificate{cert},
		ServerName:   c.ServerName,
	}, nil
}
