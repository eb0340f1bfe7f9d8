package rabbit

// Config holds the RabbitMQ connection and the queue jobs are consumed from.
type Config struct {
	Connection Connection `yaml:"connection"`
	Channel    Channel    `yaml:"channel"`
}

// Connection describes how to reach the broker.
type Connection struct {
	Host     string `yaml:"host" envconfig:"RABBITMQ_HOST"`
	Port     uint   `yaml:"port" envconfig:"RABBITMQ_PORT"`
	User     string `yaml:"user" envconfig:"RABBITMQ_USER"`
	Password string `yaml:"password" envconfig:"RABBITMQ_PASSWORD"`

	IsSSLEnabled   bool   `yaml:"is_ssl_enabled" envconfig:"RABBITMQ_IS_SSL_ENABLED"`
	UseCert        bool   `yaml:"use_cert" envconfig:"RABBITMQ_USE_CERT"`
	CACertPath     string `yaml:"ca_cert_path" envconfig:"RABBITMQ_CA_CERT_PATH"`
	ClientCertPath string `yaml:"client_cert_path" envconfig:"RABBITMQ_CLIENT_CERT_PATH"`
	ClientKeyPath  string `yaml:"client_key_path" envconfig:"RABBITMQ_CLIENT_KEY_PATH"`
	ServerName     string `yaml:"server_name" envconfig:"RABBITMQ_SERVER_NAME"`
}

// Channel names the job queue. Jobs are published through the default
// exchange with the queue name as routing key, the way Sidekiq pushes to a
// named queue.
type Channel struct {
	// QueueName is declared durable on connect. It is also the queue passed
	// to the middleware when a message names none.
	QueueName string `yaml:"queue_name" envconfig:"RABBITMQ_QUEUE_NAME"`

	// PrefetchCount bounds unacknowledged deliveries per consumer; 0 leaves
	// the broker default.
	PrefetchCount int `yaml:"prefetch_count" envconfig:"RABBITMQ_PREFETCH_COUNT"`

	// ConsumerTag identifies the consumer to the broker; empty lets the
	// broker pick one.
	ConsumerTag string `yaml:"consumer_tag" envconfig:"RABBITMQ_CONSUMER_TAG"`
}
