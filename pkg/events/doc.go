/*
Package events provides an in-memory pub/sub broker for sync progress
updates.

The broker is topic-agnostic: every SyncProgress published goes to every
subscriber. Publish never blocks; a subscriber with a full buffer simply
misses the update, since each update supersedes the last for that device.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	go func() {
		for p := range sub {
			fmt.Printf("%s: %s (%.0f%%)\n", p.DeviceID, p.Phase, p.Fraction*100)
		}
	}()
*/
package events
