// Package namespace builds topic, key and channel names with a consistent
// namespace prefix across the report sinks (MQTT, Valkey, Kafka).
package namespace

// Builder constructs namespace-prefixed topics and keys.
type Builder struct {
	namespace string
	selector  string
}

// New creates a new namespace builder. The selector is optional.
func New(namespace, selector string) *Builder {
	return &Builder{
		namespace: namespace,
		selector:  selector,
	}
}

// --- MQTT (delimiter: /) ---

// MQTTRunTopic returns the topic for a driver's run report: {ns}[/{sel}]/runs/{driver}
func (b *Builder) MQTTRunTopic(driver string) string {
	return b.mqttBase() + "/runs/" + driver
}

// MQTTStatusTopic returns the retained online/offline topic: {ns}[/{sel}]/status
func (b *Builder) MQTTStatusTopic() string {
	return b.mqttBase() + "/status"
}

// MQTTBase returns the base topic: {ns}[/{sel}]
func (b *Builder) MQTTBase() string {
	return b.mqttBase()
}

func (b *Builder) mqttBase() string {
	if b.selector != "" {
		return b.namespace + "/" + b.selector
	}
	return b.namespace
}

// --- Valkey (delimiter: :) ---

// ValkeyLatestKey returns the key holding a driver's last report: {ns}[:{sel}]:{driver}:latest
func (b *Builder) ValkeyLatestKey(driver string) string {
	return b.valkeyBase() + ":" + driver + ":latest"
}

// ValkeyHistoryKey returns the list of a driver's reports, newest first: {ns}[:{sel}]:{driver}:history
func (b *Builder) ValkeyHistoryKey(driver string) string {
	return b.valkeyBase() + ":" + driver + ":history"
}

// ValkeyRunsChannel returns the pub/sub channel for all reports: {ns}[:{sel}]:runs
func (b *Builder) ValkeyRunsChannel() string {
	return b.valkeyBase() + ":runs"
}

func (b *Builder) valkeyBase() string {
	if b.selector != "" {
		return b.namespace + ":" + b.selector
	}
	return b.namespace
}

// --- Kafka (delimiter: -) ---

// KafkaRunsTopic returns the topic for run reports: {ns}[-{sel}]-runs
// The driver name is used as the message key.
func (b *Builder) KafkaRunsTopic() string {
	return b.kafkaBase() + "-runs"
}

func (b *Builder) kafkaBase() string {
	if b.selector != "" {
		return b.namespace + "-" + b.selector
	}
	return b.namespace
}
