// Package ext holds the span tag keys and fixed string values used across
// this module and its contrib packages, mirroring the role of
// gopkg.in/DataDog/dd-trace-go.v1/ddtrace/ext in the teacher library.
package ext

// Common span tags.
const (
	Component   = "component"
	SpanKind    = "span.kind"
	Error       = "error"
	ServiceName = "service.name"
)

// span.kind values.
const (
	SpanKindServer   = "server"
	SpanKindClient   = "client"
	SpanKindProducer = "producer"
	SpanKindConsumer = "consumer"
)

// Span type names, usable as a local span's component name. tracing/zipkin
// records a local span's component name as the "component" binary
// annotation; the contrib packages pass their own literal names.
const (
	SpanTypeHTTP      = "http"
	SpanTypeSQL       = "sql"
	SpanTypeRedis     = "redis"
	SpanTypeKafka     = "queue"
	SpanTypeMemcached = "memcached"
)

// Messaging-related tags, used by contrib/sarama.
const (
	MessagingSystem        = "messaging.system"
	MessagingSystemKafka   = "kafka"
	MessagingKafkaPartition = "messaging.kafka.partition"
)

// SQL-related tags, used by contrib/sqldriver.
const (
	DBStatement = "db.statement"
	DBType      = "db.type"
)
