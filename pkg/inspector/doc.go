// Package inspector exposes the variables of an rvar runtime for debugging.
//
// Variables are registered by name with Watch. The inspector records their
// committed values and serves them over HTTP:
//
//	GET  /vars                 every watched variable
//	GET  /vars/{name}          one variable
//	GET  /vars/{name}/history  recent changes of one variable
//	GET  /stats                stats of the last update
//	GET  /snapshot             the current snapshot as JSON
//	POST /snapshot             export a snapshot to the configured store
//	GET  /metrics              Prometheus metrics
//	GET  /ws                   websocket stream of changes
//
// # Usage
//
//	reg := prometheus.NewRegistry()
//	rt := rvar.NewRuntime(rvar.WithMetrics(rvar.NewMetrics(rvar.WithRegistry(reg))))
//	in := inspector.New(rt, inspector.WithGatherer(reg))
//
//	count := rvar.New(rt, 0)
//	in.Watch("count", count).Perm()
//
//	go http.ListenAndServe(":7070", in.Handler())
//	rt.Run(ctx)
//
// Watch must be called on the update goroutine, like every other variable
// operation. The HTTP handlers only read state recorded by the inspector
// and are safe to serve from any goroutine.
//
// # Websocket Stream
//
// A client connecting to /ws first receives a snapshot message with every
// watched variable, then one change message per committed value:
//
//	{"type":"snapshot","vars":[...]}
//	{"type":"change","change":{"name":"count","epoch":12,"value":"3",...}}
//
// Clients may narrow the stream to some variables by sending
//
//	{"type":"filter","names":["count"]}
//
// An empty list streams every variable again. Clients that fall behind are
// disconnected.
package inspector
