// Package messaging publishes and consumes messages over Kafka, NATS, NSQ,
// Google Pub/Sub or an in-process broker behind one interface. Use cases
// depend on Messaging and the driver is picked from config by New.
package messaging
