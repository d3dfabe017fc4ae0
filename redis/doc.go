// Package redis provides a Redis client component and a pub/sub bridge
// that feeds broker messages into running event streams.
//
// The Bridge implements sse.Bridge. Every stream with subscription events
// gets its own subscription to the stream's channels; messages are handed
// to Scheduler.Dispatch and the subscription is closed when the stream ends.
//
//	comp := redis.NewComponent(cfg, log)
//	registry.Register(comp)
//	...
//	bridge := redis.NewBridge(comp.Client(), log)
//	h, _ := sse.NewHandler(sseCfg, sse.HandlerOptions{Bridge: bridge, Setup: setup})
package redis
