package base

import "github.com/VictoriaMetrics/metrics"

// Engine metrics, shared by all servers and clients of the process.
// They are exposed in Prometheus format by `msgt serve --metrics-endpoint`.
var (
	connectionsOpened = metrics.GetOrCreateCounter(`msgt_connections_opened_total`)
	connectionsClosed = metrics.GetOrCreateCounter(`msgt_connections_closed_total`)

	messagesReceived = metrics.GetOrCreateCounter(`msgt_messages_received_total`)
	bytesReceived    = metrics.GetOrCreateCounter(`msgt_bytes_received_total`)
	messagesSent     = metrics.GetOrCreateCounter(`msgt_messages_sent_total`)
	bytesSent        = metrics.GetOrCreateCounter(`msgt_bytes_sent_total`)
	batchesSent      = metrics.GetOrCreateCounter(`msgt_batches_sent_total`)

	framesRejected   = metrics.GetOrCreateCounter(`msgt_frames_rejected_total`)
	sendsRejected    = metrics.GetOrCreateCounter(`msgt_sends_rejected_total`)
	inboundLoadShed  = metrics.GetOrCreateCounter(`msgt_load_shed_total{queue="inbound"}`)
	outboundLoadShed = metrics.GetOrCreateCounter(`msgt_load_shed_total{queue="outbound"}`)

	messageSize = metrics.GetOrCreateHistogram(`msgt_message_size_bytes`)
)
