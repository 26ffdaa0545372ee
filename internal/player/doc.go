// Package player keeps per-player queues and transport state and publishes their transitions.
//
// Every [Player] owns a single event stream. Operations on one player are serialized, so each
// subscriber sees events in the order the transitions happened. StateChanged and VolumeChanged
// are only published when the value actually changes; QueueUpdated always carries the whole
// queue. New subscribers first receive the current state, volume, track and queue.
//
// Queued tracks pass through the add_to_queue extension hook before they are appended. Queue
// snapshots can be persisted with a [QueueStore]; [RedisQueueStore] shares them across processes.
package player
