// Package alert delivers unknown-person alerts.
//
// The default implementation publishes to ntfy, attaching the annotated frame,
// and degrades to a no-op when no topic is configured. The watch loop never
// calls a Service directly: events go through a Dispatcher, whose bounded
// queue and cooldown keep slow deliveries away from frame processing.
package alert
