// Package api provides the HTTP REST API and WebSocket server for Lumen
// Station.
//
// It exposes the scene catalogue, fade control, display power control,
// and runtime settings to the wall-panel web client, and broadcasts
// real-time updates over WebSocket.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// # Endpoints
//
//	GET    /api/v1/health              liveness, schema version, transport
//	GET    /api/v1/metrics             operational counters
//	GET    /api/v1/scenes              catalogue in position order
//	POST   /api/v1/scenes              create
//	PUT    /api/v1/scenes/reorder      move a scene to a new position
//	GET    /api/v1/scenes/{id}         single scene
//	PATCH  /api/v1/scenes/{id}         partial update
//	DELETE /api/v1/scenes/{id}         delete
//	POST   /api/v1/scenes/{id}/activate  fade to the scene
//	POST   /api/v1/fade                start a fade to arbitrary channels
//	DELETE /api/v1/fade                abort the in-flight fade
//	GET    /api/v1/fade/progress       session snapshot
//	GET    /api/v1/display             power state snapshot
//	POST   /api/v1/display/wake        register activity
//	POST   /api/v1/display/sleep       request manual sleep
//	PUT    /api/v1/display/timeout     set the idle timeout
//	GET    /api/v1/settings            runtime settings
//	PATCH  /api/v1/settings            update runtime settings
//	GET    /api/v1/ws                  WebSocket upgrade
//
// # WebSocket Channels
//
// Clients subscribe to channels after connecting; the hub broadcasts
// on change:
//
//	fade.progress   active session snapshots
//	display.state   power state transitions
//	station.status  lifecycle / transport readiness
//	display.render  render commands for the panel's own display
//
// There is no auth layer: the station binds to the layout LAN or the
// localhost panel. Requests are size-limited and CORS-restricted.
//
// Thread Safety: all methods are safe for concurrent use.
package api
