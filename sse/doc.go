// Package sse streams Server-Sent Events from a per-connection scheduler.
//
// A Scheduler owns a registry of named events and drives them on the
// goroutine that calls Run:
//
//   - Start events fire once when the stream begins.
//   - Timer events fire every interval.
//   - Subscription events fire when a payload is dispatched on their channel.
//
// Each produced payload is written with a monotonically increasing id.
// Keep-alive comments, a retry directive and an execution limit are
// controlled by Settings.
//
// # Usage
//
//	h, err := sse.NewHandler(cfg, sse.HandlerOptions{
//		Setup: func(s *sse.Scheduler, r *http.Request) error {
//			s.AddStartEvent("welcome", sse.Value("hello"))
//			_, err := s.AddTimerEvent("clock", time.Second, clock)
//			return err
//		},
//	})
//	router.GET(cfg.Path, gin.WrapH(h))
package sse
