// Package audit delivers login and authorization events to a Sink without
// blocking the request path.
//
// [Dispatcher] buffers events and relays them from one goroutine. When the
// buffer is full it either drops (counted by Dropped) or blocks until the
// caller's context ends. Sinks: [NoOpSink], [ChannelSink], [JSONWriterSink]
// and [LogrusSink].
//
// Events never carry passwords, hashes or raw tokens; the Engine decides what
// to emit.
package audit
